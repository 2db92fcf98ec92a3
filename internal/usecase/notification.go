package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"dining-concierge/internal/domain"
)

const notificationSubject = "Restaurant Recommendations Powered by Chatbot"

var notificationTemplate = template.Must(template.New("notification").Parse(`<html>
  <head></head>
  <body>
    <h2>Here are the recommended restaurants based on your request.</h2>
    <br/>
    <p>Your request: {{.Request}}</p>
    {{- if .Restaurants}}
    <p>Recommendations:</p>
    <ol>
    {{- range .Restaurants}}
      <li><b>{{.Name}}</b>{{if .Address}}, {{.Address}}{{end}}{{if .ZipCode}} {{.ZipCode}}{{end}}{{if .Rating}} - rated {{.Rating}} ({{.ReviewCount}} reviews){{end}}{{if .Phone}} - {{.Phone}}{{end}}</li>
    {{- end}}
    </ol>
    {{- else}}
    <p>Sorry, we could not find any restaurants matching your request.</p>
    {{- end}}
  </body>
</html>
`))

type notificationView struct {
	Request     string
	Restaurants []domain.Restaurant
}

// requestEcho is the canonical JSON form of the request shown back to the user.
func requestEcho(req domain.DiningRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("usecase: encode request echo: %w", err)
	}
	return string(raw), nil
}

func buildNotificationBody(req domain.DiningRequest, restaurants []domain.Restaurant) (string, error) {
	echo, err := requestEcho(req)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := notificationTemplate.Execute(&buf, notificationView{Request: echo, Restaurants: restaurants}); err != nil {
		return "", fmt.Errorf("usecase: render notification: %w", err)
	}
	return buf.String(), nil
}
