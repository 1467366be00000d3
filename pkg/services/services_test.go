package services

import (
	"log/slog"
	"os"
	"testing"

	"github.com/dukex/conduit/pkg/eventbus"
	"github.com/dukex/conduit/pkg/events"
	"github.com/dukex/conduit/pkg/mocks"
	"github.com/dukex/conduit/pkg/persistence/file"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newFilePersistence(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func newPublisher() *mocks.MockEventBus {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return bus
}

// publishedTypes lists the event types published on bus, in order.
func publishedTypes(bus *mocks.MockEventBus) []events.EventType {
	var types []events.EventType

	for _, call := range bus.Calls {
		if call.Method != "Publish" {
			continue
		}

		types = append(types, call.Arguments.Get(2).(eventbus.Event).GetType())
	}

	return types
}

func lastPublished(bus *mocks.MockEventBus) eventbus.Event {
	var last eventbus.Event

	for _, call := range bus.Calls {
		if call.Method == "Publish" {
			last = call.Arguments.Get(2).(eventbus.Event)
		}
	}

	return last
}
