package pipeline

import (
	"github.com/nextlevelbuilder/shopchat/internal/language"
	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// GeneralScripts returns the business-agnostic scripted replies that
// apply to every tenant: greetings, thanks and goodbyes in each
// supported language. Businesses override these with their own script
// table, which matches first.
func GeneralScripts() []store.ScriptEntry {
	return []store.ScriptEntry{
		{
			Intent: "greeting",
			Phrases: map[language.Language][]string{
				language.English: {"hi", "hello", "hey", "good morning", "good evening"},
				language.Arabic:  {"مرحبا", "اهلا", "أهلا", "السلام عليكم", "صباح الخير", "مساء الخير"},
				language.Arabizi: {"marhaba", "ahlan", "salam", "saba7 el kheir", "masa el kheir"},
			},
			Replies: map[language.Language]string{
				language.English: "Hello! How can I help you today?",
				language.Arabic:  "أهلاً! كيف يمكنني مساعدتك اليوم؟",
				language.Arabizi: "Ahlan! Kif fiyi se3dak el yom?",
			},
		},
		{
			Intent: "thanks",
			Phrases: map[language.Language][]string{
				language.English: {"thanks", "thank you", "thx"},
				language.Arabic:  {"شكرا", "شكراً", "يسلمو"},
				language.Arabizi: {"shukran", "choukran", "yeslamo", "merci ktir"},
			},
			Replies: map[language.Language]string{
				language.English: "You're welcome! Anything else I can help with?",
				language.Arabic:  "على الرحب والسعة! هل هناك شيء آخر أساعدك به؟",
				language.Arabizi: "Ahla w sahla! Fi shi tene fiyi se3dak fi?",
			},
		},
		{
			Intent: "goodbye",
			Phrases: map[language.Language][]string{
				language.English: {"bye", "goodbye", "see you"},
				language.Arabic:  {"مع السلامة", "الى اللقاء", "إلى اللقاء"},
				language.Arabizi: {"ma3 el salama", "bye bye", "yalla bye"},
			},
			Replies: map[language.Language]string{
				language.English: "Goodbye! Come back anytime.",
				language.Arabic:  "مع السلامة! نراك قريباً.",
				language.Arabizi: "Yalla bye! Mnshoufak 2ariban.",
			},
		},
	}
}
