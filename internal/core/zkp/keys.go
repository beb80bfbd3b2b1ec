package zkp

import (
	"fmt"
	"io"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// KeyPair bundles the compiled circuit with its Groth16 keys
type KeyPair struct {
	CCS constraint.ConstraintSystem
	PK  groth16.ProvingKey
	VK  groth16.VerifyingKey
}

// CompileEligibility compiles the eligibility circuit to R1CS over BN254
func CompileEligibility() (constraint.ConstraintSystem, error) {
	var circuit EligibilityCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	return ccs, nil
}

// GenerateKeys compiles the circuit and runs a fresh (single-party) setup
func GenerateKeys() (*KeyPair, error) {
	ccs, err := CompileEligibility()
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup failed: %w", err)
	}
	return &KeyPair{CCS: ccs, PK: pk, VK: vk}, nil
}

// Prover returns a prover bound to the key pair
func (k *KeyPair) Prover() *Prover {
	return NewProver(k.CCS, k.PK)
}

// Verifier returns a verifier bound to the key pair
func (k *KeyPair) Verifier() *Verifier {
	return NewVerifier(k.VK)
}

// ReadVerifyingKey reads a BN254 verifying key
func ReadVerifyingKey(r io.Reader) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to read vk: %w", err)
	}
	return vk, nil
}

// ReadProvingKey reads a BN254 proving key
func ReadProvingKey(r io.Reader) (groth16.ProvingKey, error) {
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to read pk: %w", err)
	}
	return pk, nil
}

// LoadProvingKey reads a proving key file
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pk file: %w", err)
	}
	defer f.Close()
	return ReadProvingKey(f)
}

// WriteKey writes a serialized key (or proof) to path
func WriteKey(path string, key io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := key.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Sync()
}

// ExportSolidity writes the Solidity verifier contract for vk
func ExportSolidity(vk groth16.VerifyingKey, w io.Writer) error {
	if err := vk.ExportSolidity(w); err != nil {
		return fmt.Errorf("failed to export solidity verifier: %w", err)
	}
	return nil
}
