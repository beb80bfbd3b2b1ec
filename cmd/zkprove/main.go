package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/core/zkp"
)

// proofRequest is the body accepted by POST /api/v1/loans
type proofRequest struct {
	Proof           zkp.ProofArtifact `json:"proof"`
	Input           []string          `json:"input"`
	RequestedAmount uint64            `json:"requested_amount,omitempty"`
	LoanCategory    string            `json:"loan_category,omitempty"`
}

// zkprove generates an eligibility proof for a farmer and prints it as a
// loan application body. The nonce must equal the farmer's current loan
// count, see GET /api/v1/eligibility/statement.
func main() {
	land := flag.Uint64("land", 0, "land holding in acres (private)")
	income := flag.Uint64("income", 0, "annual income (private)")
	address := flag.String("address", "", "farmer wallet address")
	nonce := flag.Uint64("nonce", 0, "farmer's current loan count")
	minLand := flag.Uint64("min-land", 3, "policy minimum land")
	maxIncome := flag.Uint64("max-income", 300000, "policy maximum income")
	pkPath := flag.String("pk", "keys/eligibility.pk", "proving key path")
	amount := flag.Uint64("amount", 0, "requested amount")
	category := flag.String("category", "", "loan category")
	flag.Parse()

	applicant, err := domain.ParseAddress(*address)
	if err != nil {
		log.Fatalf("❌ Invalid -address: %v", err)
	}

	ccs, err := zkp.CompileEligibility()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	pk, err := zkp.LoadProvingKey(*pkPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	st := zkp.NewStatement(applicant, *minLand, *maxIncome, *nonce)
	proof, inputs, err := zkp.NewProver(ccs, pk).Prove(st, *land, *income)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if inputs[0] != "1" {
		log.Printf("⚠️ Attributes do not meet the policy, the proof attests Eligible=0")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(proofRequest{
		Proof:           proof,
		Input:           inputs,
		RequestedAmount: *amount,
		LoanCategory:    *category,
	}); err != nil {
		log.Fatalf("❌ %v", err)
	}
}
