/*
 * integration_test.go, part of gopamm.
 *
 * Copyright 2026 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//The whole pipeline, wired together the way an analysis program would:
//trajectory -> responsibilities -> similarity -> adjacency -> clusters.

package pamm_test

import (
	"fmt"
	"path/filepath"
	"testing"

	pamm "github.com/rmera/gopamm"
	"github.com/rmera/gopamm/cluster"
	"github.com/rmera/gopamm/stats"
	"github.com/rmera/gopamm/traj"
)

func TestPipeline(Te *testing.T) {
	//six frames, three visiting each motif of test/clusters.dat
	frames := [][]float64{
		{-1.0, -1.1},
		{-0.9, -1.0},
		{-1.1, -0.9},
		{1.0, 1.1},
		{0.9, 1.0},
		{1.1, 0.9},
	}
	name := filepath.Join(Te.TempDir(), "colvar.gz")
	w, err := traj.NewWriter(name, 2)
	if err != nil {
		Te.Fatal(err)
	}
	for _, f := range frames {
		if err := w.WNext(f); err != nil {
			Te.Error(err)
		}
	}
	w.Close()

	p, err := pamm.NewPAMM([]string{"phi", "psi"}, "test/clusters.dat")
	if err != nil {
		Te.Fatal(err)
	}
	r, err := traj.NewReader(name, []string{"phi", "psi"})
	if err != nil {
		Te.Fatal(err)
	}
	defer r.Close()
	//the reader is a CV source, so single frames work too
	if _, err := p.Step(r); err != nil {
		Te.Fatal(err)
	}
	rest, err := r.ReadAll()
	if err != nil {
		Te.Fatal(err)
	}
	resp, err := p.EvaluateBatch(rest)
	if err != nil {
		Te.Fatal(err)
	}

	engine := cluster.NewEngine(cluster.ConnectedComponents{}, cluster.WithThreshold(0.5))
	a, err := engine.Run(pamm.SimilarityMatrix(resp))
	if err != nil {
		Te.Fatal(err)
	}
	fmt.Println("pipeline found", a.NumClusters(), "clusters of sizes", a.Sizes())
	if a.NumClusters() != 2 {
		Te.Fatalf("expected the 5 remaining frames to split into 2 motif clusters, got %d", a.NumClusters())
	}
	//the first two remaining frames share the first motif, the last three the second
	if a.Cluster(0) != a.Cluster(1) || a.Cluster(2) != a.Cluster(3) || a.Cluster(3) != a.Cluster(4) {
		Te.Error("frames grouped across motifs")
	}
	if a.Cluster(0) == a.Cluster(2) {
		Te.Error("both motifs collapsed into one cluster")
	}

	pop := stats.Populations(a)
	if pop[0]+pop[1] != 1 {
		Te.Errorf("populations %v don't add up to 1", pop)
	}
}
