package journal

import (
	"bytes"
	"text/template"
	"time"

	"github.com/rustyeddy/newstrader/execution"
)

var orgFuncs = template.FuncMap{
	"short": ShortID,
	"ts": func(t time.Time) string {
		if t.IsZero() {
			return "(unknown)"
		}
		return t.UTC().Format("2006-01-02 Mon 15:04")
	},
}

// ShortID trims a ULID to its last eight characters for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

type orgRun struct {
	RunRecord
	Outcomes []execution.Outcome
}

var runOrg = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// FormatRunOrg renders a run and its order attempts as an Org section.
func FormatRunOrg(r RunRecord, outcomes []execution.Outcome) (string, error) {
	var buf bytes.Buffer
	if err := runOrg.Execute(&buf, orgRun{RunRecord: r, Outcomes: outcomes}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const RunOrgTemplate = `* RUN {{.Instrument}} {{.Label}} [{{.State}}]
:PROPERTIES:
:RUN_ID:      {{.ID}}
:INSTRUMENT:  {{.Instrument}}
:DIRECTION:   {{if .Direction}}{{.Direction}}{{else}}none{{end}}
:OVERLAY:     {{.Overlay}}
:ACTIVE:      {{.Active}}
:ENTRY:       {{printf "%.5f" .EntryPrice}}
:STOP_LOSS:   {{printf "%.5f" .StopLoss}}
:TAKE_PROFIT: {{printf "%.5f" .TakeProfit}}
:LOTS:        {{printf "%.2f" .Lots}}
:HEDGE:       {{if .HedgeArmed}}armed{{else}}-{{end}}
:CREATED:     [{{ts .Created}}]
:UPDATED:     [{{ts .Updated}}]
:END:
{{- if .GridLevels}}

** Grid levels
{{- range .GridLevels}}
- {{printf "%.1f" .}} pips
{{- end}}
{{- end}}
{{- if .Reason}}

** Reason
{{.Reason}}
{{- end}}
{{- if .Outcomes}}

** Orders
| ID | Kind | Dir | Lots | Price | SL | TP | Code | OK |
|----+------+-----+------+-------+----+----+------+----|
{{- range .Outcomes}}
| {{short .ID}} | {{.Request.Kind}} | {{.Request.Direction}} | {{printf "%.2f" .Request.Lots}} | {{printf "%.5f" .Request.Price}} | {{printf "%.5f" .Request.StopLoss}} | {{printf "%.5f" .Request.TakeProfit}} | {{.Code | printf "%d"}} | {{if .OK}}yes{{else}}no{{end}} |
{{- end}}
{{- end}}
`
