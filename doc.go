/*
 * doc.go, part of gopamm.
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
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

/*Package pamm implements probabilistic analysis of molecular motifs (PAMM)
for molecular-dynamics simulations, plus the graph-clustering machinery used
to post-process its output.

The assumption is that a Gaussian mixture model has been fit elsewhere, over
some set of collective variables (CVs) computed from a trajectory. This
library reads the means, covariances and weights of the fitted kernels from
a clusters file and, for every configuration visited by the simulation,
computes one "responsibility" per kernel,

	s_k = phi_k / (reg + sum_i phi_i)

together with its derivatives with respect to the input CVs and a virial
contribution, so the responsibilities can be fed back to a biasing scheme as
ordinary CVs. The small regularization term reg keeps the denominator away
from zero even far from every kernel.


	**goPAMM Capabilities**

    Reads PLUMED-style kernel definition files (Gaussian and periodic
	von Mises mixtures, full or diagonal covariances).

    Evaluates kernel densities and responsibilities with analytical
	gradients, concurrently over kernels and over frames.

    Builds neighbor lists from responsibility/similarity matrices and
	partitions them into clusters (subpackage cluster).

    Reads and writes CV trajectories in plain or compressed text
	(subpackage traj).

    Computes cluster populations and free-energy estimates
	(subpackage stats) and plots clustered data (subpackage pammplot).

The mathematics follow Gasparotto and Ceriotti, J. Chem. Phys. 141, 174110
(2014).
*/
package pamm
