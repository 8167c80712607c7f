package game

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrGameInProgress      = errors.New("game already in progress")
	ErrNotHost             = errors.New("only the host can start the game")
	ErrInsufficientPlayers = errors.New("need at least 2 players to start")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrInvalidCell         = errors.New("invalid cell index")
)
