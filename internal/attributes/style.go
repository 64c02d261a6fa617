package attributes

import "fmt"

// Profile holds the descriptive fragments selected from attribute flags.
type Profile struct {
	Gender  string
	Hair    string
	Emotion string
	Beard   string
}

// BuildProfile maps positive attribute names onto caption fragments.
// Hair follows a fixed precedence (Bald beats every color); emotion keeps
// the last matching flag; any of Beard/Goatee counts as facial hair.
func BuildProfile(attrs []string) Profile {
	has := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		has[a] = true
	}

	gender := "female"
	if has["Male"] {
		gender = "male"
	}

	emotion := "neutral expression"
	if has["Smiling"] {
		emotion = "smiling expression"
	}
	if has["Angry"] {
		emotion = "angry look"
	}
	if has["Sad"] {
		emotion = "sad face"
	}
	if has["Surprised"] {
		emotion = "surprised expression"
	}

	hair := "short hair"
	switch {
	case has["Bald"]:
		hair = "bald head"
	case has["Black_Hair"]:
		hair = "black hair"
	case has["Blond_Hair"]:
		hair = "blond hair"
	case has["Brown_Hair"]:
		hair = "brown hair"
	case has["Gray_Hair"]:
		hair = "gray hair"
	}

	beard := "no beard"
	if has["Beard"] || has["Goatee"] {
		beard = "with facial hair"
	}

	return Profile{Gender: gender, Hair: hair, Emotion: emotion, Beard: beard}
}

// Caption renders the profile into the fixed descriptive template.
func (p Profile) Caption() string {
	return fmt.Sprintf("A %s suspect with %s, %s, and a %s.", p.Gender, p.Hair, p.Beard, p.Emotion)
}

// StyledCaption composes the template caption directly from attribute names.
func StyledCaption(attrs []string) string {
	return BuildProfile(attrs).Caption()
}
