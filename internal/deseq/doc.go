// Package deseq fits negative-binomial GLMs to RNA-seq counts and tests
// contrasts between factor levels.
//
// Design:
//
//   - Size factors come from the median-of-ratios estimator.
//   - Dispersions are gene-wise Cox–Reid MLEs shrunk toward a fitted
//     mean–dispersion trend (MAP), keeping gene-wise values for outliers.
//   - Coefficients are fitted by IRLS on the natural-log scale and reported
//     on the log2 scale; contrasts use a Wald test and Benjamini–Hochberg.
//   - Fit and Results never mutate their inputs; every stage returns new values.
package deseq
