package notify

import "html/template"

type successContext struct {
	FileName        string
	ProcessedAt     string
	TotalRows       int
	RowsInserted    int
	RowsUpdated     int
	RowsSkipped     int
	NewChannels     []string
	NewTradeClasses []string
}

type failureContext struct {
	FileName    string
	AttemptedAt string
	ErrorDetail string
}

var successTemplate = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2 style="color: #27ae60;">Mapping batch processed: {{.FileName}}</h2>
  <p>Processed at {{.ProcessedAt}}.</p>
  <ul>
    <li>Total rows: {{.TotalRows}}</li>
    <li>Rows inserted: {{.RowsInserted}}</li>
    <li>Rows updated: {{.RowsUpdated}}</li>
    <li>Rows skipped: {{.RowsSkipped}}</li>
  </ul>
  {{if .NewChannels}}
  <h3>Newly seen channels</h3>
  <ul>{{range .NewChannels}}<li>{{.}}</li>{{end}}</ul>
  {{end}}
  {{if .NewTradeClasses}}
  <h3>Newly seen trade classes</h3>
  <ul>{{range .NewTradeClasses}}<li>{{.}}</li>{{end}}</ul>
  {{end}}
  <p style="font-size: 12px; color: #888;">Automated message from the CoT mapping service.</p>
</body>
</html>
`))

var failureTemplate = template.Must(template.New("failure").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2 style="color: #e74c3c;">Mapping batch failed: {{.FileName}}</h2>
  <p>Attempted at {{.AttemptedAt}}.</p>
  <p style="background: #f8d7da; padding: 10px;">{{.ErrorDetail}}</p>
  <p>Check that the file carries the required columns
  (original channel, original trade class, new channel, new trade class)
  and resend it, or upload it manually through the dashboard.</p>
  <p style="font-size: 12px; color: #888;">Automated message from the CoT mapping service.</p>
</body>
</html>
`))
