// Package persona maps caller-supplied persona identifiers to the voice and
// prosody settings understood by the synthesis backend.
package persona

// Prosody profile names.
const (
	profileDefault      = "default"
	profileLectureSlow  = "lecture_slow"
	profileConversation = "conversation"
)

// DefaultPersona is the fallback used for unknown persona identifiers when no
// override is configured.
const DefaultPersona = "female"

// Profile is a named pair of rate and pitch adjustments applied during
// synthesis. Values are signed percentage / Hz offset strings as expected by
// the backend.
type Profile struct {
	Rate  string
	Pitch string
}

// voiceMap assigns each persona a specific neural voice. Multiple personas may
// share a voice and differ only in prosody.
var voiceMap = map[string]string{
	// Students / casual
	"female":         "en-US-JennyNeural",
	"male":           "en-US-GuyNeural",
	"student_female": "en-US-AnaNeural",
	"student_male":   "en-US-EricNeural",

	// Academic / formal
	"lecturer":         "en-US-AndrewNeural",
	"professor":        "en-US-ChristopherNeural",
	"professor_female": "en-US-AvaNeural",

	// Utilities
	"duo":      "en-US-AriaNeural",
	"narrator": "en-US-BrianNeural",
}

// prosodyMap holds the fixed set of named prosody profiles.
var prosodyMap = map[string]Profile{
	profileDefault:      {Rate: "-5%", Pitch: "+0Hz"},
	profileLectureSlow:  {Rate: "-10%", Pitch: "-2Hz"},
	profileConversation: {Rate: "+0%", Pitch: "+0Hz"},
}

// academicPersonas receive the slow, deep lecture profile.
var academicPersonas = map[string]struct{}{
	"lecturer":  {},
	"professor": {},
}

// peerPersonas receive the conversational profile.
var peerPersonas = map[string]struct{}{
	"student_male":   {},
	"student_female": {},
}

// Resolver resolves persona identifiers against the static voice and prosody
// tables. The tables are process-wide immutable data; a Resolver only carries
// the configured fallback persona.
type Resolver struct {
	defaultPersona string
}

// New creates a Resolver with the given fallback persona. An empty or unknown
// fallback is replaced by DefaultPersona so resolution can never fail.
func New(defaultPersona string) *Resolver {
	_, known := voiceMap[defaultPersona]
	if !known {
		defaultPersona = DefaultPersona
	}

	return &Resolver{defaultPersona: defaultPersona}
}

// Resolve maps a persona identifier to its (voice, rate, pitch) triple.
// Unknown personas fall back to the configured default voice. The prosody
// category is decided independently of the voice lookup, so an unknown
// persona still receives the default profile rather than an error.
func (r *Resolver) Resolve(personaID string) (voice, rate, pitch string) {
	voice, found := voiceMap[personaID]
	if !found {
		voice = voiceMap[r.defaultPersona]
	}

	profile := r.profileFor(personaID)

	return voice, profile.Rate, profile.Pitch
}

// Voices returns a copy of the persona->voice table. Mutating the returned
// map does not affect resolution.
func (r *Resolver) Voices() map[string]string {
	voices := make(map[string]string, len(voiceMap))
	for personaID, voice := range voiceMap {
		voices[personaID] = voice
	}

	return voices
}

func (r *Resolver) profileFor(personaID string) Profile {
	_, academic := academicPersonas[personaID]
	if academic {
		return prosodyMap[profileLectureSlow]
	}

	_, peer := peerPersonas[personaID]
	if peer {
		return prosodyMap[profileConversation]
	}

	return prosodyMap[profileDefault]
}
