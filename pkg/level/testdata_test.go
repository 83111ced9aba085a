package level

import (
	"io"
	"log/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sampleLevels(names ...string) []Level {
	levels := make([]Level, len(names))
	for i, name := range names {
		levels[i] = Level{
			Name:        name,
			Description: "Checkpoint shift " + name,
			NPCs: []NPC{
				{Kind: KindReal, CharacterID: 1, CharacterName: "Mara", SkinName: "default",
					QAPairs: []QAPair{{Question: "Pass?", Answer: "Here it is."}}},
				{Kind: KindFake, CharacterID: 12, CharacterName: "Mara", SkinName: "pale"},
			},
		}
	}
	return levels
}
