package zkp

import (
	"bytes"
	"math/big"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	farmer = common.HexToAddress("0x5B38Da6a701c568545dCfcB03FcB875f56beddC4")

	keysOnce sync.Once
	keys     *KeyPair
	keysErr  error
)

func testKeys(t *testing.T) *KeyPair {
	t.Helper()
	keysOnce.Do(func() {
		keys, keysErr = GenerateKeys()
	})
	require.NoError(t, keysErr)
	return keys
}

func TestCircuitSolvedForEligibleApplicant(t *testing.T) {
	st := NewStatement(farmer, 3, 300000, 0)
	err := test.IsSolved(&EligibilityCircuit{}, Assignment(st, 5, 200000), ecc.BN254.ScalarField())
	assert.NoError(t, err)
}

func TestCircuitRejectsForgedEligibility(t *testing.T) {
	tests := []struct {
		name         string
		land, income uint64
	}{
		{"income above limit", 5, 400000},
		{"land below minimum", 2, 200000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := NewStatement(farmer, 3, 300000, 0)
			forged := Assignment(st, tc.land, tc.income)
			forged.Eligible = 1
			err := test.IsSolved(&EligibilityCircuit{}, forged, ecc.BN254.ScalarField())
			assert.Error(t, err)
		})
	}
}

func TestCircuitBoundaryValues(t *testing.T) {
	st := NewStatement(farmer, 3, 300000, 0)
	// land == min and income == max are both eligible
	a := Assignment(st, 3, 300000)
	assert.Equal(t, 0, big.NewInt(1).Cmp(a.Eligible.(*big.Int)))
	assert.NoError(t, test.IsSolved(&EligibilityCircuit{}, a, ecc.BN254.ScalarField()))
}

func TestProofRoundTrip(t *testing.T) {
	kp := testKeys(t)
	prover, verifier := kp.Prover(), kp.Verifier()

	st := NewStatement(farmer, 3, 300000, 0)
	proof, inputs, err := prover.Prove(st, 5, 200000)
	require.NoError(t, err)
	assert.Equal(t, st.Strings(), inputs)

	assert.True(t, verifier.Verify(proof, st.Vector()))

	t.Run("mutated income threshold", func(t *testing.T) {
		mutated := st
		mutated.MaxIncome = 400000
		assert.False(t, verifier.Verify(proof, mutated.Vector()))
	})
	t.Run("mutated land threshold", func(t *testing.T) {
		mutated := st
		mutated.MinLand = 1
		assert.False(t, verifier.Verify(proof, mutated.Vector()))
	})
	t.Run("other applicant", func(t *testing.T) {
		other := NewStatement(common.HexToAddress("0xAb8483F64d9C6d1EcF9b849Ae677dD3315835cb2"), 3, 300000, 0)
		assert.False(t, verifier.Verify(proof, other.Vector()))
	})
	t.Run("replayed for next application", func(t *testing.T) {
		next := NewStatement(farmer, 3, 300000, 1)
		assert.False(t, verifier.Verify(proof, next.Vector()))
	})
	t.Run("swapped b coefficients", func(t *testing.T) {
		swapped := proof
		swapped.B = [2][2]string{
			{proof.B[0][1], proof.B[0][0]},
			{proof.B[1][1], proof.B[1][0]},
		}
		assert.False(t, verifier.Verify(swapped, st.Vector()))
	})
	t.Run("swapped b rows", func(t *testing.T) {
		swapped := proof
		swapped.B = [2][2]string{proof.B[1], proof.B[0]}
		assert.False(t, verifier.Verify(swapped, st.Vector()))
	})
	t.Run("swapped a and c", func(t *testing.T) {
		swapped := proof
		swapped.A, swapped.C = proof.C, proof.A
		assert.False(t, verifier.Verify(swapped, st.Vector()))
	})
	t.Run("wrong vector length", func(t *testing.T) {
		assert.False(t, verifier.Verify(proof, st.Vector()[:4]))
	})
}

func TestIneligibleApplicantProvesZero(t *testing.T) {
	kp := testKeys(t)

	st := NewStatement(farmer, 3, 300000, 0)
	proof, inputs, err := kp.Prover().Prove(st, 5, 400000)
	require.NoError(t, err)
	assert.Equal(t, "0", inputs[0])

	// valid for Eligible=0, useless against the statement the engine assembles
	parsed, err := ParseInputs(inputs)
	require.NoError(t, err)
	assert.True(t, kp.Verifier().Verify(proof, parsed))
	assert.False(t, kp.Verifier().Verify(proof, st.Vector()))
}

func TestVerifyMalformedProof(t *testing.T) {
	kp := testKeys(t)
	st := NewStatement(farmer, 3, 300000, 0)
	proof, _, err := kp.Prover().Prove(st, 5, 200000)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(p *ProofArtifact)
	}{
		{"empty coordinate", func(p *ProofArtifact) { p.A[0] = "" }},
		{"not a number", func(p *ProofArtifact) { p.C[1] = "0xZZ" }},
		{"negative", func(p *ProofArtifact) { p.A[1] = "-1" }},
		{"above modulus", func(p *ProofArtifact) {
			p.B[0][0] = "21888242871839275222246405745257275088696311157297823662689037894645226208584"
		}},
		{"off curve", func(p *ProofArtifact) { p.A[1] = "1" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bad := proof
			tc.mutate(&bad)
			assert.False(t, kp.Verifier().Verify(bad, st.Vector()))
		})
	}

	var zero ProofArtifact
	assert.False(t, kp.Verifier().Verify(zero, st.Vector()))
}

func TestEncodeDecodeIsIdentity(t *testing.T) {
	kp := testKeys(t)
	proof, _, err := kp.Prover().Prove(NewStatement(farmer, 3, 300000, 0), 5, 200000)
	require.NoError(t, err)

	native, err := DecodeProof(proof)
	require.NoError(t, err)
	assert.Equal(t, proof, EncodeProof(native))
	// imaginary coefficient first
	assert.Equal(t, native.Bs.X.A1.String(), proof.B[0][0])
	assert.Equal(t, native.Bs.Y.A0.String(), proof.B[1][1])
}

func TestVerifyingKeySerialization(t *testing.T) {
	kp := testKeys(t)

	var buf bytes.Buffer
	_, err := kp.VK.WriteTo(&buf)
	require.NoError(t, err)

	vk, err := ReadVerifyingKey(&buf)
	require.NoError(t, err)
	reloaded := NewVerifier(vk)
	assert.Equal(t, kp.Verifier().Fingerprint(), reloaded.Fingerprint())

	st := NewStatement(farmer, 3, 300000, 0)
	proof, _, err := kp.Prover().Prove(st, 5, 200000)
	require.NoError(t, err)
	assert.True(t, reloaded.Verify(proof, st.Vector()))
}

func TestParseInputs(t *testing.T) {
	v, err := ParseInputs([]string{"1", "0x03", " 300000 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "300000"}, FormatInputs(v))

	_, err = ParseInputs([]string{"abc"})
	assert.ErrorIs(t, err, ErrMalformedInput)

	// r itself is out of range
	_, err = ParseInputs([]string{"21888242871839275222246405745257275088548364400416034343698204186575808495617"})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestApplicantHashIsCaseInsensitive(t *testing.T) {
	lower := common.HexToAddress("0x5b38da6a701c568545dcfcb03fcb875f56beddc4")
	assert.Equal(t, ApplicantHash(farmer), ApplicantHash(lower))
	assert.NotEqual(t, 0, ApplicantHash(farmer).Sign())
}
