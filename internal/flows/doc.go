// Package flows contains pure flow functions for every Service operation.
// Each flow receives its dependencies as a Deps struct of funcs and small
// interfaces and returns a Result with a classified failure kind; the root
// package maps failure kinds onto its public sentinel errors. Keeping the
// flows free of root-package imports makes them independently testable and
// avoids import cycles.
package flows
