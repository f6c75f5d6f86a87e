package game

// GameEventType identifies a game event delivered to the presentation layer.
type GameEventType string

// Event types fired through the broadcast callbacks. Events prefixed with
// "private_" are only ever sent through BroadcastToPlayerFn.
const (
	EventGameCreated   GameEventType = "game_created"
	EventPlayerJoined  GameEventType = "player_joined"
	EventGameStarted   GameEventType = "game_started"
	EventPlayerTurn    GameEventType = "player_turn"
	EventClueAccepted  GameEventType = "clue_accepted"
	EventMeetingOpened GameEventType = "meeting_opened"
	EventVoteCast      GameEventType = "vote_cast"
	EventMeetingResult GameEventType = "meeting_result"
	EventGameEnd       GameEventType = "game_end"

	EventPrivateWord         GameEventType = "private_word"
	EventPrivateImposterRole GameEventType = "private_imposter_role"
)

// GameEvent is the structure handed to the broadcast callbacks. The secret
// word never appears in a room-wide event; it travels only in private events
// to the players entitled to see it, or in the end-of-game reveal.
type GameEvent struct {
	Type    GameEventType
	RoomID  string
	Payload map[string]any
}
