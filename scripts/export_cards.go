package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/optcgsim/duel-server-go/internal/catalog"
)

// Exports the built-in starter set as a YAML card file. Operators who
// want to tune or extend the card pool start from this export and point
// the cards.dir config at the directory.
func main() {
	outDir := "cards"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}

	fmt.Println("=== Duel Server Card Export ===")
	fmt.Printf("Output directory: %s\n", outDir)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	cat := catalog.NewWithStarterSet()
	fmt.Printf("Found %d cards in the built-in set\n", cat.Len())

	var file struct {
		Cards []*catalog.Card `yaml:"cards"`
	}
	for _, id := range cat.IDs() {
		card, _ := cat.Lookup(id)
		file.Cards = append(file.Cards, card)
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		log.Fatalf("Failed to marshal cards: %v", err)
	}

	outPath := filepath.Join(outDir, "starter.yaml")
	if _, err := os.Stat(outPath); err == nil {
		fmt.Printf("Warning: %s already exists\n", outPath)
		fmt.Print("Overwrite? (yes/no): ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "yes" {
			fmt.Println("Export cancelled")
			return
		}
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", outPath, err)
	}
	fmt.Printf("✓ Wrote %s\n", outPath)

	// Reload what we wrote so a bad export never reaches a server.
	check := catalog.New()
	if err := check.LoadFile(outPath); err != nil {
		log.Fatalf("Exported file failed validation: %v", err)
	}
	if check.Len() != cat.Len() {
		log.Fatalf("Export mismatch: wrote %d cards, reloaded %d", cat.Len(), check.Len())
	}
	fmt.Printf("✓ Reloaded %d cards successfully\n", check.Len())
	fmt.Println("Done. Point cards.dir at this directory to serve the exported set.")
}
