package zkp

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

var ErrMalformedProof = errors.New("malformed proof")

// ProofArtifact is the wire form of a Groth16 proof over BN254.
//
// b follows the EVM pairing precompile layout, imaginary coefficient first:
//
//	b = [[X.A1, X.A0], [Y.A1, Y.A0]]
//
// which is what snarkjs exportSolidityCallData and gnark's Solidity verifier use.
type ProofArtifact struct {
	A [2]string    `json:"a"`
	B [2][2]string `json:"b"`
	C [2]string    `json:"c"`
}

// EncodeProof converts a native proof to its wire form
func EncodeProof(p *groth16_bn254.Proof) ProofArtifact {
	return ProofArtifact{
		A: [2]string{p.Ar.X.String(), p.Ar.Y.String()},
		B: [2][2]string{
			{p.Bs.X.A1.String(), p.Bs.X.A0.String()},
			{p.Bs.Y.A1.String(), p.Bs.Y.A0.String()},
		},
		C: [2]string{p.Krs.X.String(), p.Krs.Y.String()},
	}
}

// DecodeProof parses the wire form. Every coordinate must be a canonical base
// field element and every point must lie in its prime-order subgroup.
func DecodeProof(a ProofArtifact) (*groth16_bn254.Proof, error) {
	var p groth16_bn254.Proof

	if err := decodeG1(&p.Ar, a.A); err != nil {
		return nil, fmt.Errorf("%w: a: %v", ErrMalformedProof, err)
	}
	if err := decodeG2(&p.Bs, a.B); err != nil {
		return nil, fmt.Errorf("%w: b: %v", ErrMalformedProof, err)
	}
	if err := decodeG1(&p.Krs, a.C); err != nil {
		return nil, fmt.Errorf("%w: c: %v", ErrMalformedProof, err)
	}
	return &p, nil
}

func decodeG1(p *bn254.G1Affine, xy [2]string) error {
	if err := parseFp(&p.X, xy[0]); err != nil {
		return err
	}
	if err := parseFp(&p.Y, xy[1]); err != nil {
		return err
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return errors.New("point not in G1")
	}
	return nil
}

func decodeG2(p *bn254.G2Affine, b [2][2]string) error {
	coords := []struct {
		dst *fp.Element
		src string
	}{
		{&p.X.A1, b[0][0]},
		{&p.X.A0, b[0][1]},
		{&p.Y.A1, b[1][0]},
		{&p.Y.A0, b[1][1]},
	}
	for _, c := range coords {
		if err := parseFp(c.dst, c.src); err != nil {
			return err
		}
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return errors.New("point not in G2")
	}
	return nil
}

func parseFp(dst *fp.Element, s string) error {
	v, err := parseScalar(s, fp.Modulus())
	if err != nil {
		return err
	}
	dst.SetBigInt(v)
	return nil
}
