package pipeline

import (
	"strings"

	"github.com/nextlevelbuilder/shopchat/internal/language"
	"github.com/nextlevelbuilder/shopchat/internal/policy"
)

// Localized policy-denial messages, keyed by denial reason. Feature
// denials share one generic message regardless of which feature was
// missing.
var denialMessages = map[string]map[language.Language]string{
	policy.ReasonExpired: {
		language.English: "Your subscription has expired. Please renew your plan.",
		language.Arabic:  "انتهى اشتراكك. يرجى تجديد خطتك.",
		language.Arabizi: "Eshterakak khalas. Jadded khottak please.",
	},
	policy.ReasonInactive: {
		language.English: "This account is currently inactive.",
		language.Arabic:  "هذا الحساب غير مفعل حاليا.",
		language.Arabizi: "Hal account mish mfa3al hala2.",
	},
	policy.ReasonMessageLimit: {
		language.English: "Message limit reached. Upgrade your plan.",
		language.Arabic:  "وصلت إلى الحد الأقصى للرسائل. قم بترقية خطتك.",
		language.Arabizi: "Wselna la 7ad el messages. Upgrade khottak.",
	},
	policy.ReasonVoiceLimit: {
		language.English: "Voice minutes limit reached. Upgrade your plan.",
		language.Arabic:  "وصلت إلى الحد الأقصى لدقائق الصوت. قم بترقية خطتك.",
		language.Arabizi: "Wselna la 7ad el voice minutes. Upgrade khottak.",
	},
}

var featureDenialMessage = map[language.Language]string{
	language.English: "This feature is not included in your plan.",
	language.Arabic:  "هذه الميزة غير متوفرة في خطتك.",
	language.Arabizi: "Hal mezeh mish mawjude bi khottak.",
}

var actionAckMessage = map[language.Language]string{
	language.English: "Done! Anything else I can help with?",
	language.Arabic:  "تم! هل تحتاج أي شيء آخر؟",
	language.Arabizi: "Tamam! baddak shi tene?",
}

var fallbackMessage = map[language.Language]string{
	language.English: "I didn't understand, could you clarify?",
	language.Arabic:  "لم أفهم، هل يمكنك التوضيح؟",
	language.Arabizi: "Ma fhemet, fik twaddeh aktar?",
}

// DenialMessage returns the localized user-facing message for a policy
// denial reason.
func DenialMessage(reason string, lang language.Language) string {
	lang = language.Normalize(lang)
	if strings.HasPrefix(reason, policy.ReasonFeaturePrefix) {
		return featureDenialMessage[lang]
	}
	if msgs, ok := denialMessages[reason]; ok {
		return msgs[lang]
	}
	return featureDenialMessage[lang]
}

// ActionAckMessage stands in for a model reply that was nothing but an
// action block, which stripping would otherwise leave empty.
func ActionAckMessage(lang language.Language) string {
	return actionAckMessage[language.Normalize(lang)]
}

// FallbackMessage returns the localized generic apology used when the AI
// backend fails.
func FallbackMessage(lang language.Language) string {
	return fallbackMessage[language.Normalize(lang)]
}
