package google

import (
	"html/template"
	"io"
)

// ButtonConfig mirrors the GIS renderButton options.
type ButtonConfig struct {
	Type          string
	Theme         string
	Size          string
	Text          string
	Shape         string
	LogoAlignment string
	Width         int
	Locale        string
}

func DefaultButtonConfig() ButtonConfig {
	return ButtonConfig{
		Type:  "standard",
		Theme: "filled_blue",
		Size:  "large",
		Text:  "continue_with",
		Shape: "rectangular",
		Width: 300,
	}
}

type buttonPage struct {
	ScriptURL string
	ClientID  string
	LoginURI  string
	Button    ButtonConfig
}

var buttonTemplate = template.Must(template.New("gis-button").Parse(`<script src="{{.ScriptURL}}" async defer></script>
<div id="g_id_onload" data-client_id="{{.ClientID}}"{{if .LoginURI}} data-login_uri="{{.LoginURI}}" data-ux_mode="redirect"{{end}} data-auto_select="false" data-cancel_on_tap_outside="true"></div>
<div class="g_id_signin" data-type="{{.Button.Type}}" data-theme="{{.Button.Theme}}" data-size="{{.Button.Size}}" data-text="{{.Button.Text}}" data-shape="{{.Button.Shape}}"{{if .Button.LogoAlignment}} data-logo_alignment="{{.Button.LogoAlignment}}"{{end}}{{if .Button.Width}} data-width="{{.Button.Width}}"{{end}}{{if .Button.Locale}} data-locale="{{.Button.Locale}}"{{end}}></div>
`))

// WriteButton renders the GIS markup for a sign in button. When loginURI is
// set the credential is posted there instead of handed to a page callback.
func WriteButton(w io.Writer, clientID string, loginURI string, button ButtonConfig) error {
	return buttonTemplate.Execute(w, buttonPage{
		ScriptURL: ScriptURL,
		ClientID:  clientID,
		LoginURI:  loginURI,
		Button:    button,
	})
}
