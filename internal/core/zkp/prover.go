package zkp

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
)

// Prover generates eligibility proofs on the applicant side
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
}

// NewProver creates a new prover
func NewProver(ccs constraint.ConstraintSystem, pk groth16.ProvingKey) *Prover {
	return &Prover{ccs: ccs, pk: pk}
}

// Assignment builds the full witness assignment. Eligible is computed from the
// private attributes, so an ineligible applicant gets a valid proof of Eligible=0.
func Assignment(st PublicStatement, land, income uint64) *EligibilityCircuit {
	st.Eligible = land >= st.MinLand && income <= st.MaxIncome
	v := st.Vector()
	return &EligibilityCircuit{
		Eligible:  v[0],
		MinLand:   v[1],
		MaxIncome: v[2],
		Applicant: v[3],
		Nonce:     v[4],
		Land:      land,
		Income:    income,
	}
}

// Prove proves the statement for the given private attributes and returns
// the proof artifact together with its public inputs in wire form
func (p *Prover) Prove(st PublicStatement, land, income uint64) (ProofArtifact, []string, error) {
	w, err := frontend.NewWitness(Assignment(st, land, income), ecc.BN254.ScalarField())
	if err != nil {
		return ProofArtifact{}, nil, fmt.Errorf("failed to construct witness: %w", err)
	}

	proof, err := groth16.Prove(p.ccs, p.pk, w)
	if err != nil {
		return ProofArtifact{}, nil, fmt.Errorf("failed to generate proof: %w", err)
	}
	native, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return ProofArtifact{}, nil, errors.New("failed to cast proof to bn254.Proof")
	}

	public, err := w.Public()
	if err != nil {
		return ProofArtifact{}, nil, fmt.Errorf("failed to extract public witness: %w", err)
	}
	elems, ok := public.Vector().(fr.Vector)
	if !ok {
		return ProofArtifact{}, nil, errors.New("unexpected public witness vector type")
	}
	inputs := make([]string, len(elems))
	for i := range elems {
		inputs[i] = elems[i].String()
	}

	return EncodeProof(native), inputs, nil
}
