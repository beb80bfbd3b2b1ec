// Package zkp holds the eligibility circuit and the Groth16 tooling around it.
// The server only needs the Verifier; the circuit, keys and Prover serve the
// setup and client-side proving commands and the tests.
package zkp

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/cmp"
)

const (
	// AttributeBits bounds land, income and both thresholds
	AttributeBits = 64
	// NonceBits bounds the per-applicant application counter
	NonceBits = 32
)

// EligibilityCircuit proves Land >= MinLand and Income <= MaxIncome without
// revealing either attribute. Public field order is the public-input layout.
type EligibilityCircuit struct {
	Eligible  frontend.Variable `gnark:",public"`
	MinLand   frontend.Variable `gnark:",public"`
	MaxIncome frontend.Variable `gnark:",public"`
	Applicant frontend.Variable `gnark:",public"`
	Nonce     frontend.Variable `gnark:",public"`

	Land   frontend.Variable
	Income frontend.Variable
}

// Define declares the circuit constraints
func (c *EligibilityCircuit) Define(api frontend.API) error {
	// range checks keep the comparisons sound over the field
	for _, v := range []frontend.Variable{c.Land, c.Income, c.MinLand, c.MaxIncome} {
		api.ToBinary(v, AttributeBits)
	}
	api.ToBinary(c.Nonce, NonceBits)
	api.AssertIsDifferent(c.Applicant, 0)

	hasLand := cmp.IsLessOrEqual(api, c.MinLand, c.Land)
	withinIncome := cmp.IsLessOrEqual(api, c.Income, c.MaxIncome)
	api.AssertIsEqual(c.Eligible, api.And(hasLand, withinIncome))

	return nil
}
