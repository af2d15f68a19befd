package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"composer/internal/app"
	"composer/internal/app/catalog"
	"composer/internal/domain"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func formatVersion(entry domain.ContentEntry) string {
	if entry.VersionNumber == nil {
		return entry.Version
	}
	return entry.Version + " (#" + strconv.FormatUint(*entry.VersionNumber, 10) + ")"
}

func printSnapshot(snapshot catalog.Snapshot, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(snapshot)
	}
	fmt.Printf("revision=%d ready=%t entries=%d pending=%d\n",
		snapshot.Revision, snapshot.Ready, snapshot.Catalog.Len(), snapshot.PendingSources())
	for _, entry := range snapshot.Catalog.Entries() {
		fmt.Printf("%s\t%s\t%s\n", entry.ContentID, formatVersion(entry.Entry), entry.Via)
	}
	for _, invalid := range snapshot.Invalid {
		fmt.Printf("invalid\t%s\t%s\t%s\n", invalid.ContentID, invalid.Version, invalid.Source)
	}
	for _, sourceErr := range snapshot.Errors {
		fmt.Printf("error\t%s\n", sourceErr.Error())
	}
	return nil
}

func printSources(label string, sources []app.Source, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{label: sources})
	}
	fmt.Printf("%s=%d\n", label, len(sources))
	for _, source := range sources {
		fmt.Printf("%s\t%s\n", source.ID, source.Locator)
	}
	return nil
}

func printSourceAdded(source app.Source, entries []domain.ContentEntry, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{
			"id":       source.ID,
			"locator":  source.Locator,
			"contents": entries,
		})
	}
	fmt.Printf("added %s\t%s\tcontents=%d\n", source.ID, source.Locator, len(entries))
	return nil
}

func printProfiles(profiles []domain.Profile, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{"profiles": profiles})
	}
	fmt.Printf("profiles=%d\n", len(profiles))
	for _, profile := range profiles {
		fmt.Printf("%s\t%s\t%s\n", profile.ID, profile.Name, profile.Path)
	}
	return nil
}

func printPlan(plan domain.InstallPlan, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(plan)
	}
	fmt.Printf("keep=%d update=%d install=%d\n", len(plan.ToKeep), len(plan.ToUpdate), len(plan.ToInstall))
	for _, update := range plan.ToUpdate {
		fmt.Printf("update\t%s\t%s -> %s\n", update.New.ID, formatVersion(update.Old), formatVersion(update.New))
	}
	for _, entry := range plan.ToInstall {
		fmt.Printf("install\t%s\t%s\n", entry.ID, formatVersion(entry))
	}
	for _, entry := range plan.ToKeep {
		fmt.Printf("keep\t%s\t%s\n", entry.ID, formatVersion(entry))
	}
	return nil
}

func printRemoved(kind, id string, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{"removed": id, "kind": kind})
	}
	fmt.Printf("removed %s %s\n", kind, id)
	return nil
}
