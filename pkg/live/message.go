package live

// AudioChunk is one block of captured audio, base64-encoded 16-bit PCM.
type AudioChunk struct {
	MIMEType string
	Data     string
}

// ServerMessage is a message from the remote peer. It is one of
// InputTranscript, OutputTranscript, TurnComplete, AudioPayload,
// Interrupted or GoAway.
type ServerMessage interface {
	serverMessage()
}

// InputTranscript is a fragment of the user's speech transcript.
type InputTranscript struct {
	Text string
}

// OutputTranscript is a fragment of the model's speech transcript.
type OutputTranscript struct {
	Text string
}

// TurnComplete marks the end of a turn.
type TurnComplete struct{}

// AudioPayload is synthesized audio, base64-encoded 16-bit mono PCM.
type AudioPayload struct {
	MIMEType string
	Data     string
}

// Interrupted reports that the user spoke over the model.
type Interrupted struct{}

// GoAway warns that the peer will close the connection soon.
type GoAway struct {
	TimeLeft string
}

func (InputTranscript) serverMessage()  {}
func (OutputTranscript) serverMessage() {}
func (TurnComplete) serverMessage()     {}
func (AudioPayload) serverMessage()     {}
func (Interrupted) serverMessage()      {}
func (GoAway) serverMessage()           {}
