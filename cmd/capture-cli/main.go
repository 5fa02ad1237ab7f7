package main

import (
	"context"

	"goofish-backend/cmd/capture-cli/commands"
	"goofish-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "capture-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
