// Package geminilive implements a client for the Gemini Live API, the
// bidirectional streaming endpoint (BidiGenerateContent) used for real-time
// voice conversations.
//
// A Session is one websocket connection. Connect sends the setup message and
// returns once the server acknowledges it. Audio is streamed upstream with
// SendAudio; server messages (synthesized audio, transcripts, turn and
// interruption signals) are consumed with Events.
//
// Example:
//
//	client := geminilive.NewClient(apiKey)
//	session, err := client.Connect(ctx, &geminilive.ConnectConfig{
//	    Model:               geminilive.ModelNativeAudio,
//	    ResponseModalities:  []string{geminilive.ModalityAudio},
//	    InputTranscription:  true,
//	    OutputTranscription: true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	go func() {
//	    for chunk := range mic {
//	        session.SendAudio(ctx, geminilive.Blob{MIMEType: "audio/pcm;rate=16000", Data: chunk})
//	    }
//	}()
//
//	for msg, err := range session.Events() {
//	    if err != nil {
//	        return err
//	    }
//	    if sc := msg.ServerContent; sc != nil && sc.Interrupted {
//	        // flush playback
//	    }
//	}
package geminilive
