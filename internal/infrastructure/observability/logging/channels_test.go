package logging

import (
	"testing"
	"time"
)

func TestChannelsAreDistinct(t *testing.T) {
	logger, err := NewChanneledLogger(&LoggerConfig{
		OutputToConsole: false,
		OutputToFile:    false,
		JSONFormat:      true,
		DefaultLevel:    DefaultLoggerConfig().DefaultLevel,
		ChannelLevels:   nil,
	})
	if err != nil {
		t.Fatalf("NewChanneledLogger: %v", err)
	}

	channels := []Channel{
		ChannelSystem, ChannelStartup, ChannelShutdown,
		ChannelAuth, ChannelCache, ChannelDatabase, ChannelUpstream,
	}
	for _, channel := range channels {
		if logger.GetChannel(channel) == nil {
			t.Errorf("channel %s has no logger", channel)
		}
	}
}

func TestGetChannelFallsBackToSystem(t *testing.T) {
	logger := Discard()
	if logger.GetChannel(Channel("nonexistent")) != logger.System() {
		t.Error("unknown channel did not fall back to system")
	}
}

func TestWithRequestCarriesCorrelationID(t *testing.T) {
	logger := Discard()
	scoped := logger.WithRequest(ChannelUpstream, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	if scoped == nil {
		t.Fatal("WithRequest returned nil")
	}
	scoped.Info("request scoped line")
}

func TestLogCacheOperationDoesNotPanicOnDiscard(t *testing.T) {
	logger := Discard()
	logger.LogCacheOperation("load", "articles", "article-1", true, 3*time.Millisecond)
	logger.LogCacheOperation("load", "articles", "article-2", false, 3*time.Millisecond)
}
