package notify

import (
	"bytes"
	"html/template"
	"strconv"

	"kvcheck/internal/checks"
	"kvcheck/internal/datasource"
	"kvcheck/internal/queue"
	dErrors "kvcheck/pkg/domain-errors"
	pkgstrings "kvcheck/pkg/platform/strings"
)

// unresolved is shown for fields that have no value, such as a department
// missing from the directory.
const unresolved = "ukendt"

var templates = template.Must(template.New("mail").Parse(`
{{define "KV1"}}<h4>Følgende ansættelse på overenskomst {{.Overenskomst}} er registreret med en forkert institutionskode:</h4><p>Tjenestenummer: {{.Tjenestenummer}}</p><p>Navn: {{.Navn}}</p><p>Afdeling: {{.Afdeling}} ({{.Enhedsnavn}})</p><p>SD institutionskode: {{.Institutionskode}}</p><p>Startdato: {{.Startdato}}</p><p>Slutdato: {{.Slutdato}}</p><p>Statuskode: {{.Statuskode}}</p>{{end}}
{{define "KV2"}}<h4>Følgende ansættelse mangler et tillægsnummer, da denne er registreret med et {{.FoundSide}}-tillægsnummer, men mangler et {{.MissingSide}}-tillægsnummer:</h4><p>Tjenestenummer: {{.Tjenestenummer}}</p><p>Navn: {{.Navn}}</p><p>Overenskomst: {{.Overenskomst}}</p><p>Afdeling: {{.Afdeling}} ({{.Enhedsnavn}})</p><p>SD institutionskode: {{.Institutionskode}}</p><p>Fundet tillæg: {{.FoundNumber}}-{{.FoundName}}</p><p>Manglende tillæg: {{.MissingNumber}}-{{.MissingName}}</p>Ved rettelse af denne fejl skal lønsammensætningen kontrolleres. Ved spørgsmål, kontakt da Personale.{{end}}
{{define "KV3"}}<h4>Følgende ansættelse er oprettet med en forkert SD overenskomst:</h4><p>Tjenestenummer: {{.Tjenestenummer}}</p><p>Navn: {{.Navn}}</p><p>Afdeling: {{.Afdeling}} ({{.Enhedsnavn}})</p><p>Afdelingstype: {{.Afdelingstype}}</p><p>SD institutionskode: {{.Institutionskode}}</p><p>Registreret overenskomst: {{.Overenskomst}}</p>{{end}}
{{define "KV4"}}<h4>Følgende leder har ikke fået fastlåst sin anciennitetsdato:</h4><p>Tjenestenummer: {{.Tjenestenummer}}</p><p>Navn: {{.Navn}}</p><p>Afdeling: {{.Afdeling}} ({{.Enhedsnavn}})</p><p>SD institutionskode: {{.Institutionskode}}</p><p>Registreret overenskomst: {{.Overenskomst}}</p><p>Anciennitetsdato: {{.Anciennitetsdato}}</p>{{end}}
`))

// mailView holds the display strings of a work item.
type mailView struct {
	Tjenestenummer   string
	Navn             string
	Overenskomst     string
	Afdeling         string
	Enhedsnavn       string
	Institutionskode string
	Startdato        string
	Slutdato         string
	Statuskode       string
	Afdelingstype    string
	Anciennitetsdato string

	FoundNumber   string
	FoundName     string
	FoundSide     string
	MissingNumber string
	MissingName   string
	MissingSide   string
}

// Renderer builds the HTML mail body of a work item.
type Renderer struct {
	pairs checks.PairTable
}

// NewRenderer creates a Renderer resolving allowance partners in pairs.
func NewRenderer(pairs checks.PairTable) *Renderer {
	return &Renderer{pairs: pairs}
}

// Render returns the body for a work item of process.
func (r *Renderer) Render(process string, item *queue.WorkItem) (string, error) {
	payload, err := item.Payload()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDataShape, "decode work item payload")
	}
	return r.RenderPayload(process, payload)
}

// RenderPayload is Render on an already decoded payload.
func (r *Renderer) RenderPayload(process string, payload map[string]any) (string, error) {
	key := pkgstrings.NormalizeKey(process)
	view := newMailView(payload)

	var name string
	switch key {
	case "KV1":
		name = "KV1"
	case "KV2":
		if err := r.resolvePair(payload, &view); err != nil {
			return "", err
		}
		name = "KV2"
	case "KV3", "KV3-DEV":
		if _, ok := payload[checks.ColDepartmentType]; !ok {
			return "", dErrors.Newf(dErrors.CodeDataShape, "%s work item lacks %s", key, checks.ColDepartmentType)
		}
		name = "KV3"
	case "KV4":
		name = "KV4"
	default:
		return "", dErrors.Newf(dErrors.CodeConfiguration, "no mail template for process %s", key)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "render "+key+" mail")
	}
	return buf.String(), nil
}

// resolvePair fills the found and missing allowance of a KV2 item. An
// allowance outside every configured pair leaves the missing fields
// unresolved.
func (r *Renderer) resolvePair(payload map[string]any, view *mailView) error {
	number, ok := datasource.AsInt(payload[checks.ColAllowanceNumber])
	if !ok {
		return dErrors.Newf(dErrors.CodeDataShape, "KV2 work item lacks a numeric %s", checks.ColAllowanceNumber)
	}
	name, ok := payload[checks.ColAllowanceName].(string)
	if !ok {
		return dErrors.Newf(dErrors.CodeDataShape, "KV2 work item lacks %s", checks.ColAllowanceName)
	}
	side, ok := checks.AllowanceSide(name)
	if !ok {
		return dErrors.Newf(dErrors.CodeDataShape, "allowance name %q has no A/B side marker", name)
	}

	view.FoundNumber = strconv.Itoa(number)
	view.FoundName = name
	view.FoundSide = side
	view.MissingNumber = unresolved
	view.MissingName = unresolved
	view.MissingSide = unresolved

	contractType, _ := datasource.AsInt(payload[checks.ColContractType])
	partner, partnerName, found := r.pairs.FindPartner(contractType, number)
	if !found {
		return nil
	}
	partnerSide, _ := checks.AllowanceSide(partnerName)
	if partnerSide == side {
		return dErrors.Newf(dErrors.CodeDataShape, "allowance %d and its partner %d are both side %s", number, partner, side)
	}
	view.MissingNumber = strconv.Itoa(partner)
	view.MissingName = partnerName
	view.MissingSide = partnerSide
	return nil
}

func newMailView(p map[string]any) mailView {
	return mailView{
		Tjenestenummer:   display(p[checks.ColServiceNumber]),
		Navn:             display(p[checks.ColName]),
		Overenskomst:     display(p[checks.ColContractType]),
		Afdeling:         display(p[checks.ColDepartment]),
		Enhedsnavn:       display(p[checks.ColDepartmentName]),
		Institutionskode: display(p[checks.ColInstitution]),
		Startdato:        display(p[checks.ColStartDate]),
		Slutdato:         display(p[checks.ColEndDate]),
		Statuskode:       display(p[checks.ColStatus]),
		Afdelingstype:    display(p[checks.ColDepartmentType]),
		Anciennitetsdato: display(p[checks.ColSeniorityDate]),
	}
}

// display formats a JSON payload value. Whole numbers never use exponent
// notation.
func display(v any) string {
	switch t := v.(type) {
	case nil:
		return unresolved
	case string:
		if t == "" {
			return unresolved
		}
		return t
	case float64:
		if n, ok := datasource.AsInt(t); ok && t < 1e15 && t > -1e15 {
			return strconv.Itoa(n)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return unresolved
	}
}

