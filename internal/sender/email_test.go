package sender_test

import (
	"os"
	"path/filepath"
	"testing"

	"fulfillment-service/config"
	"fulfillment-service/internal/sender"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greet.html"), []byte(`<p>Hi {{.Name}}</p>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greet.txt"), []byte(`Hi {{.Name}}`), 0o644))

	s := sender.NewEmailSender(&config.Notifier{TMPLDir: dir})
	html, plain, err := s.Render(sender.EmailNotification{Template: "greet", Data: map[string]any{"Name": "<Jane>"}})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hi &lt;Jane&gt;</p>", html)
	assert.Equal(t, "Hi <Jane>", plain)
}

func TestRender_MissingTemplate(t *testing.T) {
	s := sender.NewEmailSender(&config.Notifier{TMPLDir: t.TempDir()})
	_, _, err := s.Render(sender.EmailNotification{Template: "nope"})
	assert.Error(t, err)
}

func TestRender_ShippedTemplates(t *testing.T) {
	s := sender.NewEmailSender(&config.Notifier{TMPLDir: filepath.Join("..", "..", "templates")})
	for _, name := range []string{"order_confirmed", "return_refunded", "return_rejected"} {
		_, _, err := s.Render(sender.EmailNotification{Template: name, Data: map[string]any{
			"Name": "Jane", "OrderID": "o", "ReturnID": "r", "Amount": "1.00", "Currency": "CAD",
			"Total": "1.00", "Tracking": "", "Items": []map[string]any{{"Title": "Shirt", "Size": "M", "Color": "Black", "Quantity": 1, "Price": "1.00"}},
		}})
		assert.NoError(t, err, name)
	}
}
