package main

import (
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/cmd"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
