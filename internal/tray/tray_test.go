package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	assert.Equal(t, "Virtual Touchpad - http://192.168.1.2:16080", Title("http://192.168.1.2:16080"))
}

func TestMenuItems(t *testing.T) {
	tr := New("http://localhost:16080", nil)
	status := tr.AddMenuItem("Clients: 0", nil)
	tr.AddSeparator()
	quit := tr.AddMenuItem("Quit", func() {})

	assert.Equal(t, 0, status)
	assert.Equal(t, 2, quit)

	// Before the tray runs only the stored title changes.
	tr.SetItemTitle(status, "Clients: 1")
	assert.Equal(t, "Clients: 1", tr.items[status].Title)
	tr.SetItemTitle(1, "ignored")
	tr.SetItemTitle(7, "ignored")
}
