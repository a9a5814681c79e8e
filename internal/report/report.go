// Package report renders a Markdown tender report from the semantic
// summary and an optional reconciliation run.
package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

// Section names accepted by Render.
const (
	SectionSummary      = "summary"
	SectionTotals       = "totals"
	SectionGroups       = "groups"
	SectionFlags        = "flags"
	SectionMissing      = "missing"
	SectionUnrecognized = "unrecognized"
)

// sectionOrder fixes the order sections appear in the document.
var sectionOrder = []string{
	SectionSummary,
	SectionTotals,
	SectionGroups,
	SectionFlags,
	SectionMissing,
	SectionUnrecognized,
}

var knownSections = func() map[string]bool {
	m := make(map[string]bool, len(sectionOrder))
	for _, name := range sectionOrder {
		m[name] = true
	}
	return m
}()

// DefaultTopGroups caps the top-groups table when the caller does not.
const DefaultTopGroups = 10

// Options selects and sizes report sections.
type Options struct {
	// Sections picks sections by name; empty or "all" means every section.
	Sections []string
	// TopGroups caps the top-groups-by-volume table. Zero means
	// DefaultTopGroups.
	TopGroups int
}

// SectionNames returns the known sections in document order.
func SectionNames() []string {
	names := make([]string, len(sectionOrder))
	copy(names, sectionOrder)
	return names
}

// Render assembles the Markdown document. The reconciliation report may be
// nil; its sections then carry a placeholder instead of tables.
func Render(summary *model.Summary, rec *model.ReconciliationReport, opts Options) (string, error) {
	if summary == nil {
		return "", fmt.Errorf("%w: no summary to report on", common.ErrValidation)
	}
	selected, err := resolveSections(opts.Sections)
	if err != nil {
		return "", err
	}
	top := opts.TopGroups
	if top <= 0 {
		top = DefaultTopGroups
	}

	var b strings.Builder
	b.WriteString("# BIM Model Report\n\n")
	fmt.Fprintf(&b, "_Generated: %s_\n\n", time.Now().Format("2006-01-02 15:04"))

	for _, name := range sectionOrder {
		if !selected[name] {
			continue
		}
		switch name {
		case SectionSummary:
			writeSummarySection(&b, summary)
		case SectionTotals:
			writeTotalsSection(&b, summary)
		case SectionGroups:
			writeGroupsSection(&b, summary, top)
		case SectionFlags:
			writeFlagsSection(&b, rec)
		case SectionMissing:
			writeMissingSection(&b, rec)
		case SectionUnrecognized:
			writeUnrecognizedSection(&b, summary)
		}
	}
	return b.String(), nil
}

// resolveSections expands and validates the requested section names.
func resolveSections(sections []string) (map[string]bool, error) {
	selected := make(map[string]bool, len(sectionOrder))
	if len(sections) == 0 {
		for _, name := range sectionOrder {
			selected[name] = true
		}
		return selected, nil
	}
	for _, name := range sections {
		if name == "all" {
			for _, known := range sectionOrder {
				selected[known] = true
			}
			continue
		}
		if !knownSections[name] {
			return nil, fmt.Errorf("%w: unknown section %q, use %s or all",
				common.ErrValidation, name, strings.Join(sectionOrder, ", "))
		}
		selected[name] = true
	}
	return selected, nil
}

func writeSummarySection(b *strings.Builder, s *model.Summary) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	if s.Meta.Mode != "" {
		fmt.Fprintf(b, "| Scan mode | %s |\n", s.Meta.Mode)
	}
	fmt.Fprintf(b, "| Semantic groups | %d |\n", s.GroupCount())
	fmt.Fprintf(b, "| Patterns loaded | %d |\n", s.Meta.PatternsLoaded)
	fmt.Fprintf(b, "| Unrecognized types | %d |\n", s.Meta.UnrecognizedCount)
	if s.Meta.LinkedFilesFound > 0 {
		fmt.Fprintf(b, "| Linked files | %d of %d |\n", s.Meta.LinkedFilesLoaded, s.Meta.LinkedFilesFound)
	}
	b.WriteString("\n")
	if s.LevelWarning != "" {
		fmt.Fprintf(b, "_Level data: %s_\n\n", s.LevelWarning)
	}
	if s.LinksError != "" {
		fmt.Fprintf(b, "_Linked files: %s_\n\n", s.LinksError)
	}
}

func writeTotalsSection(b *strings.Builder, s *model.Summary) {
	b.WriteString("## Totals by Domain\n\n")
	if s.GroupCount() == 0 {
		b.WriteString("_No semantic groups._\n\n")
		return
	}

	b.WriteString("| Domain | Groups | Elements | Volume (m3) | Area (m2) | Length (m) |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, top := range domainKeys(s) {
		subs := s.Groups[top]
		var count int
		var volume, area, length float64
		for _, g := range subs {
			count += g.TotalCount
			volume += g.TotalVolumeM3
			area += g.TotalAreaM2
			length += g.TotalLengthM
		}
		fmt.Fprintf(b, "| %s | %d | %d | %s | %s | %s |\n",
			top, len(subs), count, formatQty(volume), formatQty(area), formatQty(length))
	}
	b.WriteString("\n")
}

func writeGroupsSection(b *strings.Builder, s *model.Summary, top int) {
	b.WriteString("## Top Groups by Volume\n\n")
	if s.GroupCount() == 0 {
		b.WriteString("_No semantic groups._\n\n")
		return
	}

	type ranked struct {
		key   string
		entry *model.GroupEntry
	}
	var groups []ranked
	for _, domain := range domainKeys(s) {
		subs := s.Groups[domain]
		subKeys := make([]string, 0, len(subs))
		for sub := range subs {
			subKeys = append(subKeys, sub)
		}
		sort.Strings(subKeys)
		for _, sub := range subKeys {
			groups = append(groups, ranked{key: domain + "." + sub, entry: subs[sub]})
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].entry.TotalVolumeM3 > groups[j].entry.TotalVolumeM3
	})
	if len(groups) > top {
		groups = groups[:top]
	}

	b.WriteString("| # | Group | Label | Volume (m3) | Elements |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for i, g := range groups {
		fmt.Fprintf(b, "| %d | %s | %s | %s | %d |\n",
			i+1, g.key, g.entry.Label, formatQty(g.entry.TotalVolumeM3), g.entry.TotalCount)
	}
	b.WriteString("\n")
}

func writeFlagsSection(b *strings.Builder, rec *model.ReconciliationReport) {
	b.WriteString("## Red Flags\n\n")
	if rec == nil {
		b.WriteString("_No reconciliation data._\n\n")
		return
	}

	stats := rec.Summary
	fmt.Fprintf(b, "_Tolerance %s%%: %d OK, %d red flags, %d without BIM match, %d missing in VOR._\n\n",
		formatQty(stats.TolerancePct), stats.OK, stats.RedFlags, stats.NoMatch, stats.Missing)

	if len(rec.RedFlags) == 0 {
		b.WriteString("_No red flags._\n\n")
		return
	}
	b.WriteString("| Position | Unit | VOR | BIM | Diff % | Status |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, entry := range rec.RedFlags {
		bim := ""
		if entry.BIMVolume != nil {
			bim = formatQty(*entry.BIMVolume)
		}
		diff := ""
		if entry.DiffPct != nil {
			diff = formatQty(*entry.DiffPct)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
			entry.Name, entry.Unit, formatQty(entry.VORVolume), bim, diff, entry.Status.Label())
	}
	b.WriteString("\n")
}

func writeMissingSection(b *strings.Builder, rec *model.ReconciliationReport) {
	b.WriteString("## Missing in VOR\n\n")
	if rec == nil {
		b.WriteString("_No reconciliation data._\n\n")
		return
	}
	if len(rec.MissingInVOR) == 0 {
		b.WriteString("_Every model group is covered by the bill._\n\n")
		return
	}

	b.WriteString("| Group | Name | Unit | Quantity |\n|---|---|---|---|\n")
	for _, entry := range rec.MissingInVOR {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			entry.Group, entry.Label, string(entry.Unit), formatQty(entry.Quantity))
	}
	b.WriteString("\n")
}

func writeUnrecognizedSection(b *strings.Builder, s *model.Summary) {
	b.WriteString("## Unrecognized Types\n\n")
	if len(s.Unrecognized) == 0 {
		b.WriteString("_All types recognized._\n\n")
		return
	}

	b.WriteString("| Category | Type | Count | Volume (m3) |\n|---|---|---|---|\n")
	for _, item := range s.Unrecognized {
		fmt.Fprintf(b, "| %s | %s | %d | %s |\n",
			item.Category, item.TypeName, item.Count, formatQty(item.VolumeM3))
	}
	b.WriteString("\n")
}

// domainKeys orders the summary's top-level domains: the three known ones
// first, anything else alphabetically after.
func domainKeys(s *model.Summary) []string {
	keys := make([]string, 0, len(s.Groups))
	for _, known := range []string{"structural", "architectural", "mep"} {
		if _, ok := s.Groups[known]; ok {
			keys = append(keys, known)
		}
	}
	var rest []string
	for top := range s.Groups {
		switch top {
		case "structural", "architectural", "mep":
			continue
		}
		rest = append(rest, top)
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// formatQty prints a quantity rounded to two decimals without trailing
// zeros.
func formatQty(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
