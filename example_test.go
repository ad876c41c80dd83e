package aethel_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bkase/aethel"
	"github.com/bkase/aethel/pkg/core"
)

// Example_basic initializes a vault, creates a note and appends to it.
func Example_basic() {
	tmpDir, err := os.MkdirTemp("", "aethel-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := context.Background()
	vault, err := aethel.New(ctx, tmpDir, aethel.WithAutoInit(true), aethel.WithVersioning(false))
	if err != nil {
		log.Fatal(err)
	}
	defer vault.Close()

	doc, _, err := vault.Service.Create(ctx, core.CreateRequest{
		Type:  "note",
		Title: "Hello",
		Body:  "First line.",
	})
	if err != nil {
		log.Fatal(err)
	}

	doc, err = vault.Service.Append(ctx, doc.ID, "Second line.")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(doc.Type)
	fmt.Println(doc.Metadata["title"])
	fmt.Println(doc.Body)
	// Output:
	// core_note/note
	// Hello
	// First line.
	//
	// Second line.
}

// ExampleNewTypedService decodes artifact metadata into a struct.
func ExampleNewTypedService() {
	tmpDir, err := os.MkdirTemp("", "aethel-typed-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := context.Background()
	vault, err := aethel.New(ctx, tmpDir, aethel.WithAutoInit(true), aethel.WithVersioning(false))
	if err != nil {
		log.Fatal(err)
	}
	defer vault.Close()

	type Meeting struct {
		Room      string   `yaml:"room"`
		Attendees []string `yaml:"attendees"`
	}

	meetings := aethel.NewTypedService[Meeting](vault, "note")
	created, err := meetings.Create(ctx, "Standup", "", nil, Meeting{Room: "B2", Attendees: []string{"ana", "li"}})
	if err != nil {
		log.Fatal(err)
	}

	got, err := meetings.Get(ctx, created.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(got.Data.Room, len(got.Data.Attendees))
	// Output:
	// B2 2
}
