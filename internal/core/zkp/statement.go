package zkp

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// PublicInputCount is the length of the public-input vector
const PublicInputCount = 5

var ErrMalformedInput = errors.New("malformed public input")

// PublicStatement is the public side of an eligibility proof
type PublicStatement struct {
	Eligible  bool
	MinLand   uint64
	MaxIncome uint64
	Applicant *big.Int
	Nonce     uint64
}

// NewStatement returns the statement an eligible applicant proves
func NewStatement(applicant common.Address, minLand, maxIncome, nonce uint64) PublicStatement {
	return PublicStatement{
		Eligible:  true,
		MinLand:   minLand,
		MaxIncome: maxIncome,
		Applicant: ApplicantHash(applicant),
		Nonce:     nonce,
	}
}

// Vector returns the ordered public-input vector
func (s PublicStatement) Vector() []*big.Int {
	eligible := big.NewInt(0)
	if s.Eligible {
		eligible.SetInt64(1)
	}
	applicant := new(big.Int)
	if s.Applicant != nil {
		applicant.Set(s.Applicant)
	}
	return []*big.Int{
		eligible,
		new(big.Int).SetUint64(s.MinLand),
		new(big.Int).SetUint64(s.MaxIncome),
		applicant,
		new(big.Int).SetUint64(s.Nonce),
	}
}

// Strings returns the vector as decimal strings, the wire form
func (s PublicStatement) Strings() []string {
	return FormatInputs(s.Vector())
}

// ApplicantHash maps an address to the scalar field: keccak256(address) mod r
func ApplicantHash(addr common.Address) *big.Int {
	h := sha3.NewLegacyKeccak256()
	h.Write(addr.Bytes())
	v := new(big.Int).SetBytes(h.Sum(nil))
	return v.Mod(v, fr.Modulus())
}

// ParseInputs parses decimal (or 0x-hex) scalar field elements
func ParseInputs(in []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(in))
	for i, s := range in {
		v, err := parseScalar(s, fr.Modulus())
		if err != nil {
			return nil, fmt.Errorf("%w: input %d: %v", ErrMalformedInput, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// FormatInputs renders field elements as decimal strings
func FormatInputs(in []*big.Int) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = v.String()
	}
	return out
}

// EqualInputs compares two input vectors element-wise
func EqualInputs(a, b []*big.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == nil || b[i] == nil || a[i].Cmp(b[i]) != 0 {
			return false
		}
	}
	return true
}

// parseScalar parses a non-negative integer strictly below modulus
func parseScalar(s string, modulus *big.Int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	if s == "" {
		return nil, errors.New("empty value")
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("not a base-%d integer", base)
	}
	if v.Sign() < 0 || v.Cmp(modulus) >= 0 {
		return nil, errors.New("out of field range")
	}
	return v, nil
}
