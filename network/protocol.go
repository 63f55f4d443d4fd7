package network

const (
	MsgTypeHeartbeat = 1

	// inbound
	MsgTypeJoinGame      = 101
	MsgTypeAttemptRejoin = 102
	MsgTypeSubmitItem    = 103

	// outbound
	MsgTypePlayerJoined = 201
	MsgTypePlayerLeft   = 202
	MsgTypeGameStarting = 203
	MsgTypeCountdown    = 204
	MsgTypeGameStarted  = 205
	MsgTypeRoundStarted = 206
	MsgTypeItemVerified = 207
	MsgTypeRoundEnded   = 208
	MsgTypeGameEnded    = 209
	MsgTypeRejoinResult = 210

	MsgTypeError = 300
)
