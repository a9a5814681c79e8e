package excel

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mbagrov/bimtally/internal/model"
)

// Presentation order and labels for the semantic domains. Domains outside
// the known three sort alphabetically after them.
var domainOrder = []string{"structural", "architectural", "mep"}

var domainBandLabels = map[string]string{
	"structural":    "Конструктив (Structural)",
	"architectural": "Архитектура (Architectural)",
	"mep":           "Инженерия (MEP)",
}

var domainSheetNames = map[string]string{
	"structural":    "Конструктив",
	"architectural": "Архитектура",
	"mep":           "Инженерия",
}

// writeSummary lays out the overview sheet, one detail sheet per domain and
// the unrecognized remainder.
func writeSummary(wb *workbook, st *styleSet, s *model.Summary, title string) {
	overview := wb.sheet(title)
	overview.styledRow(st.title, fmt.Sprintf("BIM Сводка — %s", time.Now().Format("2006-01-02")))
	overview.blank()
	overview.styledRow(st.header,
		"Группа", "Паттерн", "Наименование", "Объём м3", "Площадь м2", "Длина м", "Кол-во")
	overview.colWidths(18, 20, 35, 12, 12, 12, 10)

	var totalVol, totalArea, totalLen float64
	var totalCount int
	for _, top := range domainKeys(s.Groups) {
		subs := s.Groups[top]
		if len(subs) == 0 {
			continue
		}
		overview.styledRow(st.band, domainBandLabel(top), "", "", "", "", "", "")
		for _, sub := range subKeys(subs) {
			g := subs[sub]
			overview.row(top, sub, g.Label,
				round2(g.TotalVolumeM3), round2(g.TotalAreaM2), round2(g.TotalLengthM), g.TotalCount)
			totalVol += g.TotalVolumeM3
			totalArea += g.TotalAreaM2
			totalLen += g.TotalLengthM
			totalCount += g.TotalCount
		}
	}
	overview.blank()
	overview.styledRow(st.bold,
		"ИТОГО", "", "", round2(totalVol), round2(totalArea), round2(totalLen), totalCount)
	overview.freeze(3)

	for _, top := range domainKeys(s.Groups) {
		if len(s.Groups[top]) == 0 {
			continue
		}
		writeDomainSheet(wb.sheet(domainSheetName(top)), st, s.Groups[top])
	}

	if len(s.Unrecognized) > 0 {
		writeUnrecognizedSheet(wb.sheet("Нераспознанное"), st, s.Unrecognized)
	}
}

// writeDomainSheet lists one domain's groups with their catalog breakdown.
func writeDomainSheet(sh *sheet, st *styleSet, subs map[string]*model.GroupEntry) {
	sh.styledRow(st.header,
		"Группа", "Категория", "Тип", "Объём м3", "Площадь м2", "Длина м", "Кол-во", "Источник")
	sh.colWidths(24, 22, 40, 12, 12, 12, 10, 18)

	for _, sub := range subKeys(subs) {
		g := subs[sub]
		label := g.Label
		if label == "" {
			label = sub
		}
		sh.styledRow(st.band, label, "", "",
			round2(g.TotalVolumeM3), round2(g.TotalAreaM2), round2(g.TotalLengthM), g.TotalCount, "")
		for _, item := range g.Breakdown {
			sh.row("", item.Category, item.TypeName,
				round2(item.VolumeM3), round2(item.AreaM2), round2(item.LengthM), item.Count, item.Source)
		}
	}
	sh.freeze(1)
}

func writeUnrecognizedSheet(sh *sheet, st *styleSet, items []model.UnrecognizedItem) {
	sh.styledRow(st.header, "Категория", "Тип", "Кол-во", "Объём м3", "Источник")
	sh.colWidths(22, 40, 10, 12, 18)
	for _, item := range items {
		sh.row(item.Category, item.TypeName, item.Count, round2(item.VolumeM3), item.Source)
	}
	sh.freeze(1)
}

// writeReconciliation lays out the verdict table with status fills and the
// run counters, plus a second sheet for groups the bill never claimed.
func writeReconciliation(wb *workbook, st *styleSet, report *model.ReconciliationReport, title string) {
	sh := wb.sheet(title)
	sh.styledRow(st.header,
		"Позиция ВОР", "Единица", "ВОР объём", "BIM объём", "Расхождение %", "Статус", "Группа BIM", "Метод")
	sh.colWidths(35, 10, 14, 14, 16, 22, 24, 10)

	writeEntry := func(entry model.ReconciliationEntry) {
		bim := any("")
		if entry.BIMVolume != nil {
			bim = round2(*entry.BIMVolume)
		}
		diff := any("")
		if entry.DiffPct != nil {
			diff = *entry.DiffPct
		}
		sh.styledRow(st.statusStyle(entry.Status),
			entry.Name, entry.Unit, entry.VORVolume, bim, diff,
			entry.Status.Label(), entry.MatchedPattern, string(entry.MatchMethod))
	}
	for _, entry := range report.Matches {
		writeEntry(entry)
	}
	for _, entry := range report.RedFlags {
		writeEntry(entry)
	}

	sh.blank()
	stats := report.Summary
	r := sh.row(fmt.Sprintf("OK: %d", stats.OK),
		fmt.Sprintf("Red flags: %d", stats.RedFlags),
		fmt.Sprintf("Нет совпадения: %d", stats.NoMatch))
	sh.style(r, 1, 1, st.bold)
	sh.style(r, 2, 2, st.boldRed)
	sh.style(r, 3, 3, st.bold)
	sh.freeze(1)

	if len(report.MissingInVOR) > 0 {
		missing := wb.sheet("Отсутствует в ВОР")
		missing.styledRow(st.header, "Группа", "Наименование", "Ед.изм.", "Объём")
		missing.colWidths(24, 40, 10, 12)
		for _, m := range report.MissingInVOR {
			missing.row(m.Group, m.Label, string(m.Unit), round2(m.Quantity))
		}
		missing.freeze(1)
	}
}

// writeVOR lays out a generated bill the way tender packages expect it.
func writeVOR(wb *workbook, st *styleSet, doc *model.VORDocument, title string) {
	sh := wb.sheet(title)
	sh.styledRow(st.header, "№", "Наименование работ", "Единица", "Объём", "Группа", "Источник")
	sh.colWidths(5, 45, 10, 12, 18, 25)

	for i, pos := range doc.Positions {
		num := pos.Num
		if num == 0 {
			num = i + 1
		}
		volume := any(pos.Volume)
		if pos.Source == model.SourceMissing {
			volume = ""
		}
		r := sh.row(num, pos.Name, pos.Unit, volume, pos.Group, pos.SourceLabel())
		sh.style(r, 2, 2, st.wrap)
	}

	total := doc.TotalCount
	if total == 0 {
		total = len(doc.Positions)
	}
	sh.blank()
	sh.styledRow(st.bold, fmt.Sprintf("Итого позиций: %d", total))
	sh.freeze(1)
}

// writeCatalog lays out the category rollup and the full per-type list.
// Failed-batch markers carry no quantities and are skipped.
func writeCatalog(wb *workbook, st *styleSet, catalog model.Catalog, title string) {
	var categories []string
	for category := range catalog {
		if strings.HasPrefix(category, model.ErrorBatchPrefix) {
			continue
		}
		categories = append(categories, category)
	}
	sort.Strings(categories)

	sh := wb.sheet(title)
	sh.styledRow(st.header, "Категория", "Типов", "Элементов", "Объём м3", "Площадь м2", "Длина м")
	sh.colWidths(25, 10, 12, 14, 14, 12)
	for _, category := range categories {
		totals := catalog[category]
		sh.row(category, len(totals.Types), totals.TotalCount,
			totals.TotalVolumeM3, totals.TotalAreaM2, totals.TotalLengthM)
	}
	sh.freeze(1)

	detail := wb.sheet("Типы")
	detail.styledRow(st.header, "Категория", "Тип", "Кол-во", "Объём м3", "Площадь м2", "Длина м")
	detail.colWidths(25, 40, 10, 12, 12, 12)
	for _, category := range categories {
		for _, t := range catalog[category].Types {
			detail.row(category, t.TypeName, t.Count, t.VolumeM3, t.AreaM2, t.LengthM)
		}
	}
	detail.freeze(1)
}

// writeGeneric lays out any JSON object as a key/value table. Nested values
// are re-encoded as JSON and clipped, enough to see what the payload was.
func writeGeneric(wb *workbook, st *styleSet, payload map[string]any, title string) {
	sh := wb.sheet(title)
	sh.styledRow(st.header, "Ключ", "Значение")
	sh.colWidths(30, 50)

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		sh.row(key, genericValue(payload[key]))
	}
	sh.freeze(1)
}

const genericValueLimit = 500

func genericValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		s := string(encoded)
		if utf8.RuneCountInString(s) > genericValueLimit {
			s = string([]rune(s)[:genericValueLimit])
		}
		return s
	default:
		return fmt.Sprint(v)
	}
}

// domainKeys returns the summary's top-level domains in presentation order.
func domainKeys(groups map[string]map[string]*model.GroupEntry) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, top := range domainOrder {
		if _, ok := groups[top]; ok {
			keys = append(keys, top)
			seen[top] = true
		}
	}
	var rest []string
	for top := range groups {
		if !seen[top] {
			rest = append(rest, top)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func subKeys(subs map[string]*model.GroupEntry) []string {
	keys := make([]string, 0, len(subs))
	for sub := range subs {
		keys = append(keys, sub)
	}
	sort.Strings(keys)
	return keys
}

func domainBandLabel(top string) string {
	if label, ok := domainBandLabels[top]; ok {
		return label
	}
	return strings.ToUpper(top)
}

func domainSheetName(top string) string {
	if name, ok := domainSheetNames[top]; ok {
		return name
	}
	return top
}
