package notification

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/bher20/solarquote/internal/calculator"
	"github.com/bher20/solarquote/internal/estimates"
)

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"usd":  calculator.FormatUSD,
	"date": func(s estimates.Summary) string { return s.Since.Format("Jan 2 15:04") + " to " + s.Until.Format("Jan 2 15:04 MST") },
}).Parse(`<h2>Solar estimates digest</h2>
<p>{{date .Summary}}</p>
<table>
<tr><th align="left">Calculator</th><th align="right">Estimates</th></tr>
{{range .Kinds}}<tr><td>{{.Name}}</td><td align="right">{{.Count}}</td></tr>
{{end}}<tr><td><b>Total</b></td><td align="right"><b>{{.Summary.Total}}</b></td></tr>
</table>
<ul>
<li>Average system size: {{printf "%.2f" .Summary.AvgSystemSizeKW}} kW</li>
<li>Average payback: {{printf "%.1f" .Summary.AvgPaybackYears}} years</li>
<li>Average battery: {{printf "%.1f" .Summary.AvgBatteryKWh}} kWh</li>
<li>Projected annual savings quoted: {{usd .Summary.TotalAnnualSavingsUSD}}</li>
</ul>
{{if .TopStates}}<p>Top states: {{range $i, $s := .TopStates}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}`))

type digestKind struct {
	Name  string
	Count int
}

// RenderDigest builds the digest email for sum.
func RenderDigest(to string, sum estimates.Summary) (Message, error) {
	data := struct {
		Summary   estimates.Summary
		Kinds     []digestKind
		TopStates []string
	}{Summary: sum, TopStates: sum.TopStates(5)}
	for _, k := range calculator.Kinds() {
		data.Kinds = append(data.Kinds, digestKind{Name: k.String(), Count: sum.ByKind[k.String()]})
	}

	var b bytes.Buffer
	if err := digestTmpl.Execute(&b, data); err != nil {
		return Message{}, fmt.Errorf("render digest: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("solarquote digest: %d estimates", sum.Total),
		HTML:    b.String(),
	}, nil
}
