package zkp

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"golang.org/x/crypto/sha3"
)

// Verifier checks eligibility proofs against a fixed verifying key.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	vk          groth16.VerifyingKey
	fingerprint string
}

// NewVerifier creates a new verifier
func NewVerifier(vk groth16.VerifyingKey) *Verifier {
	h := sha3.NewLegacyKeccak256()
	_, _ = vk.WriteTo(h)
	return &Verifier{vk: vk, fingerprint: hex.EncodeToString(h.Sum(nil))}
}

// LoadVerifier reads the verifying key file once at startup
func LoadVerifier(path string) (*Verifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vk file: %w", err)
	}
	defer f.Close()

	vk, err := ReadVerifyingKey(f)
	if err != nil {
		return nil, err
	}
	return NewVerifier(vk), nil
}

// Fingerprint identifies the loaded verifying key
func (v *Verifier) Fingerprint() string {
	return v.fingerprint
}

// Verify returns true only if proof is valid for publicInputs.
// Malformed proofs and inputs yield false, never a panic.
func (v *Verifier) Verify(proof ProofArtifact, publicInputs []*big.Int) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if len(publicInputs) != PublicInputCount {
		return false
	}
	for _, in := range publicInputs {
		if in == nil || in.Sign() < 0 || in.Cmp(fr.Modulus()) >= 0 {
			return false
		}
	}

	native, err := DecodeProof(proof)
	if err != nil {
		return false
	}

	assignment := &EligibilityCircuit{
		Eligible:  publicInputs[0],
		MinLand:   publicInputs[1],
		MaxIncome: publicInputs[2],
		Applicant: publicInputs[3],
		Nonce:     publicInputs[4],
	}
	publicWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false
	}

	return groth16.Verify(native, v.vk, publicWitness) == nil
}
