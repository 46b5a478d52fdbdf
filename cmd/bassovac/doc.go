// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
bassovac is a somatic single-nucleotide variant caller. Given a matched
normal/tumor BAM pair and a reference FASTA, it walks every reference
position both samples cover, evaluates a joint Bayesian genotype model at
each one, and reports positions where the posterior probability of a
somatic event clears a configurable threshold.

Sample usage:
bassovac \
    --normal-purity 0.95 \
    --tumor-purity 0.6 \
    ref.fa normal.bam tumor.bam
*/
package main
