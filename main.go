// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
)

func main() {
	fmt.Println("🔄 go-marketsync - Marketplace Catalog Sync Engine")
	fmt.Println("==================================================")
	fmt.Println()
	fmt.Println("go-marketsync keeps a local SQLite marketplace cache aligned with a remote")
	fmt.Println("catalog/identity service: staged reconciliation, shared-key account/merchant")
	fmt.Println("derivation, and reactive read models for presentation code.")
	fmt.Println()

	fmt.Println("📚 Packages:")
	fmt.Println()
	fmt.Println("  localstore/  SQLite relational cache: foreign keys, cascade delete,")
	fmt.Println("               whole-row upserts, Watch-based change notifications")
	fmt.Println("  remotegw/    Typed HTTP client for the catalog service with a")
	fmt.Println("               transient/not-found/conflict/decode error taxonomy")
	fmt.Println("  reconcile/   Entity reconcilers: account derivation by email,")
	fmt.Println("               merchant shared-key upserts, listing full replacement")
	fmt.Println("  syncer/      Staged orchestrator with single-flight coalescing and")
	fmt.Println("               a structured stage-event stream")
	fmt.Println("  readmodel/   Reactive listing queries: search, by owner, favorites")
	fmt.Println()

	fmt.Println("▶ Runnable example: examples/catalog_sync")
	fmt.Println("  Starts a stub catalog service, runs a full sync, and prints the")
	fmt.Println("  reconciled listings as they land in the local store.")
	fmt.Println("  Run: cd examples/catalog_sync && go run .")
}
