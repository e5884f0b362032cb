package app

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeySpace     = " "
	KeyEnter     = "enter"
	KeyEsc       = "esc"
	KeyToggle    = "t"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyJ         = "j"
	KeyK         = "k"
	KeyCopy      = "c"
	KeyRetry     = "r"
	KeyCancel    = "x"
	KeyDelete    = "d"
	KeyClear     = "X"
	KeyConfirm   = "y"
)
