// Package aethel is the Composition Root for the Aethel vault.
//
// A vault is a directory of Markdown artifacts with YAML frontmatter,
// laid out as:
//
//	00_inbox/  10_sources/  20_artifacts/  30_knowledge/  99_system/plugins/  .aethel/
//
// Artifacts live under 20_artifacts/<extension>/YYYY/MM and are the source
// of truth. The SQLite index in .aethel/index.db maps artifact UUIDs to
// paths and can always be rebuilt from the files. Extensions under
// 99_system/plugins declare schemas; their inheritance is resolved into
// flat field lists and cached in .aethel/registry.cache.
//
// Usage:
//
//	vault, err := aethel.New(ctx, "./vault", aethel.WithAutoInit(true))
//	if err != nil {
//		return err
//	}
//	defer vault.Close()
//
//	doc, path, err := vault.Service.Create(ctx, core.CreateRequest{
//		Type:  "note",
//		Title: "My First Note",
//	})
package aethel
