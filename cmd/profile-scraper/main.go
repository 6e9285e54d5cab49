package main

import (
	"github.com/Hamza5/InteractiveCV/cmd/profile-scraper/commands"
	"github.com/Hamza5/InteractiveCV/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
