package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversByType(t *testing.T) {
	bus := NewBus()

	var folders []string
	var files []FileSelected
	bus.Subscribe(TypeFolderSelected, func(e Event) {
		folders = append(folders, e.(FolderSelected).Folder)
	})
	bus.Subscribe(TypeFileSelected, func(e Event) {
		files = append(files, e.(FileSelected))
	})

	bus.Publish(FolderSelected{Folder: "journal"})
	bus.Publish(FileSelected{Filename: "notes.md", Folder: "journal"})
	bus.Publish(FolderSelected{Folder: ""})

	assert.Equal(t, []string{"journal", ""}, folders)
	require.Len(t, files, 1)
	assert.Equal(t, FileSelected{Filename: "notes.md", Folder: "journal"}, files[0])
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := bus.Subscribe(TypeFolderSelected, func(Event) { calls++ })
	other := 0
	bus.Subscribe(TypeFolderSelected, func(Event) { other++ })

	bus.Publish(FolderSelected{})
	unsubscribe()
	unsubscribe()
	bus.Publish(FolderSelected{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
}

func TestBusRecoversHandlerPanic(t *testing.T) {
	bus := NewBus()

	delivered := false
	bus.Subscribe(TypeError, func(Event) { panic("boom") })
	bus.Subscribe(TypeError, func(Event) { delivered = true })

	assert.NotPanics(t, func() {
		bus.Publish(Error{Op: "open", Err: errors.New("nope")})
	})
	assert.True(t, delivered)
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, TypeFolderSelected, FolderSelected{}.Type())
	assert.Equal(t, TypeFileSelected, FileSelected{}.Type())
	assert.Equal(t, TypeFileOpened, FileOpened{}.Type())
	assert.Equal(t, TypeError, Error{}.Type())
}
