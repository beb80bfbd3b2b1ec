package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"kcc-loanhub/internal/core/zkp"
)

// zkkeys runs the Groth16 setup for the eligibility circuit and writes the
// proving and verifying keys. The setup is single-party and only suited to
// development networks.
func main() {
	out := flag.String("out", "keys", "output directory")
	sol := flag.Bool("sol", false, "also export the Solidity verifier contract")
	flag.Parse()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("❌ Failed to create %s: %v", *out, err)
	}

	log.Println("🔧 Compiling eligibility circuit and running setup...")
	keys, err := zkp.GenerateKeys()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("✅ Circuit compiled: %d constraints, %d public inputs",
		keys.CCS.GetNbConstraints(), keys.CCS.GetNbPublicVariables()-1)

	pkPath := filepath.Join(*out, "eligibility.pk")
	vkPath := filepath.Join(*out, "eligibility.vk")
	if err := zkp.WriteKey(pkPath, keys.PK); err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := zkp.WriteKey(vkPath, keys.VK); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("✅ Proving key written to %s", pkPath)
	log.Printf("✅ Verifying key written to %s (fingerprint %s)", vkPath, keys.Verifier().Fingerprint())

	if *sol {
		solPath := filepath.Join(*out, "Verifier.sol")
		f, err := os.Create(solPath)
		if err != nil {
			log.Fatalf("❌ Failed to create %s: %v", solPath, err)
		}
		defer f.Close()
		if err := zkp.ExportSolidity(keys.VK, f); err != nil {
			log.Fatalf("❌ %v", err)
		}
		log.Printf("✅ Solidity verifier written to %s", solPath)
	}
}
