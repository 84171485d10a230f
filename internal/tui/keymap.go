package tui

// Key bindings handled in handleKey.
const (
	KeyToggle        = " "
	KeyNextCharacter = "c"
	KeyPrevCharacter = "C"
	KeyQuit          = "q"
	KeyCtrlC         = "ctrl+c"
)
