package geminilive

import "encoding/json"

// ConnectConfig configures a session. It is sent once as the setup message.
type ConnectConfig struct {
	// Model is the model name, with or without the "models/" prefix.
	Model string

	// SystemInstruction is the system prompt.
	SystemInstruction string

	// ResponseModalities selects response kinds, e.g. ModalityAudio.
	ResponseModalities []string

	// Voice selects a prebuilt voice by name. Empty uses the model default.
	Voice string

	// InputTranscription enables transcripts of the user's speech.
	InputTranscription bool

	// OutputTranscription enables transcripts of the model's speech.
	OutputTranscription bool
}

// Blob is inline binary data encoded as base64.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one piece of content.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Content is a list of parts attributed to a role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig *voiceConfig `json:"voiceConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type setup struct {
	Model                    string            `json:"model"`
	GenerationConfig         *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction        *Content          `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}         `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

type realtimeInput struct {
	Audio          *Blob `json:"audio,omitempty"`
	AudioStreamEnd bool  `json:"audioStreamEnd,omitempty"`
}

type clientContent struct {
	Turns        []Content `json:"turns,omitempty"`
	TurnComplete bool      `json:"turnComplete"`
}

// clientMessage is the envelope for everything the client sends. Exactly
// one field is set.
type clientMessage struct {
	Setup         *setup         `json:"setup,omitempty"`
	RealtimeInput *realtimeInput `json:"realtimeInput,omitempty"`
	ClientContent *clientContent `json:"clientContent,omitempty"`
}

// Transcription is an incremental transcript fragment.
type Transcription struct {
	Text     string `json:"text"`
	Finished bool   `json:"finished,omitempty"`
}

// ServerContent carries model output and turn signals.
type ServerContent struct {
	ModelTurn           *Content       `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	GenerationComplete  bool           `json:"generationComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
}

// AudioParts returns the inline audio blobs of the model turn in order.
func (sc *ServerContent) AudioParts() []*Blob {
	if sc == nil || sc.ModelTurn == nil {
		return nil
	}
	var out []*Blob
	for i := range sc.ModelTurn.Parts {
		if b := sc.ModelTurn.Parts[i].InlineData; b != nil && b.Data != "" {
			out = append(out, b)
		}
	}
	return out
}

// GoAway warns that the server will close the connection soon.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// UsageMetadata reports token accounting for the session so far.
type UsageMetadata struct {
	PromptTokenCount   int `json:"promptTokenCount,omitempty"`
	ResponseTokenCount int `json:"responseTokenCount,omitempty"`
	TotalTokenCount    int `json:"totalTokenCount,omitempty"`
}

// ServerMessage is one message received from the server. Usually exactly one
// of the payload fields is set.
type ServerMessage struct {
	SetupComplete        *struct{}       `json:"setupComplete,omitempty"`
	ServerContent        *ServerContent  `json:"serverContent,omitempty"`
	ToolCall             json.RawMessage `json:"toolCall,omitempty"`
	ToolCallCancellation json.RawMessage `json:"toolCallCancellation,omitempty"`
	GoAway               *GoAway         `json:"goAway,omitempty"`
	UsageMetadata        *UsageMetadata  `json:"usageMetadata,omitempty"`

	// Raw is the undecoded message.
	Raw []byte `json:"-"`
}
