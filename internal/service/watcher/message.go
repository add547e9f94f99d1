package watcher

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/oshokin/outage-watch/internal/domain/outage"
)

const (
	// updatedLayout renders the observation time.
	updatedLayout = "15:04:05 02.01.2006"
	// dayLayout renders the date of an outage start.
	dayLayout = "02.01"
	// chartSuffix closes a photo caption.
	chartSuffix = "\n\nГрафік за добу"
	// chartTitleFormat is drawn on the image: address and group.
	chartTitleFormat = "%s: відключення (група %s)"
)

// messageTemplate renders the Telegram HTML status of one address.
// Values are escaped by html/template; Telegram accepts numeric entities.
const messageTemplate = `<b>Світло {{.Address}}</b>
<i>Група: {{.Group}} (ДТЕК)</i>
{{- with .Previous}}

<b>{{if $.Off}}Світло було{{else}}Світла не було{{end}}:</b>
з {{.SinceClock}} по {{.UntilClock}}
Протягом:
{{elapsed .Elapsed}}
{{- end}}
{{- if .Off}}

<b>Світла немає!</b>
{{.Address}}
Відсутнє: {{elapsed .Current.Elapsed}}
Вимкнено о {{.Current.SinceClock}} {{.OffDate}}
{{- else}}

<b>Світло є!</b> {{.Address}}
з {{.Current.SinceClock}} по {{.Current.UntilClock}}
Протягом:
{{elapsed .Current.Elapsed}}
{{- end}}

<i>ДТЕК:</i> {{.Category}}
Оновлено: {{.UpdatedAt}}
Вимкн.: {{.Start}} | Увімкн.: {{.End}}`

//nolint:gochecknoglobals // Parsed once, read-only afterwards.
var message = template.Must(template.New("message").Funcs(template.FuncMap{
	"elapsed": outage.FormatElapsed,
}).Parse(messageTemplate))

// messageView is the data of messageTemplate.
type messageView struct {
	Address   string
	Group     string
	Category  string
	Start     string
	End       string
	UpdatedAt string
	Off       bool
	OffDate   string
	Current   outage.Interval
	Previous  *outage.Interval
}

// renderMessage builds the status text of one row after the engine processed it.
func renderMessage(row outage.Row, narrative outage.Narrative, group string, loc *time.Location) (string, error) {
	view := messageView{
		Address:   row.Address,
		Group:     group,
		Category:  row.Category,
		Start:     row.ScheduledStart,
		End:       row.ScheduledEnd,
		UpdatedAt: row.ObservedAt.In(loc).Format(updatedLayout),
		Off:       narrative.State == outage.WithoutPower,
		OffDate:   narrative.Current.Since.In(loc).Format(dayLayout),
		Current:   narrative.Current,
		Previous:  narrative.Previous,
	}

	var out bytes.Buffer
	if err := message.Execute(&out, view); err != nil {
		return "", fmt.Errorf("render message for %q: %w", row.Address, err)
	}

	return out.String(), nil
}
