package language

// shortWords maps common single-token messages to a language directly.
// Single-word inputs carry too little signal for scoring, so a lookup
// table decides them regardless of history.
var shortWords = map[string]Language{
	// English
	"hi":      English,
	"hello":   English,
	"hey":     English,
	"ok":      English,
	"okay":    English,
	"yes":     English,
	"no":      English,
	"thanks":  English,
	"thank":   English,
	"please":  English,
	"sure":    English,
	"great":   English,
	"good":    English,
	"morning": English,
	"bye":     English,

	// Arabizi
	"salam":   Arabizi,
	"mar7aba": Arabizi,
	"shukran": Arabizi,
	"yalla":   Arabizi,
	"tamam":   Arabizi,
	"tmam":    Arabizi,
	"aywa":    Arabizi,
	"la2":     Arabizi,
	"ah":      Arabizi,
	"eh":      Arabizi,
	"habibi":  Arabizi,
	"khalas":  Arabizi,
	"sah":     Arabizi,
	"akeed":   Arabizi,

	// Arabic script
	"مرحبا": Arabic,
	"اهلا":  Arabic,
	"أهلا":  Arabic,
	"شكرا":  Arabic,
	"نعم":   Arabic,
	"لا":    Arabic,
	"تمام":  Arabic,
	"طيب":   Arabic,
	"ايوه":  Arabic,
	"سلام":  Arabic,
	"يعطيك": Arabic,
	"ممكن":  Arabic,
}

// arabiziKeywords are Latin-script tokens that strongly indicate Arabizi
// in multi-word messages. Digit-for-letter spellings (2=ء, 3=ع, 5=خ, 7=ح, 9=ق)
// are caught separately by the digit rule.
var arabiziKeywords = map[string]bool{
	"habibi":   true,
	"habibti":  true,
	"shukran":  true,
	"yalla":    true,
	"wallah":   true,
	"walla":    true,
	"inshallah": true,
	"khalas":   true,
	"kifak":    true,
	"kifik":    true,
	"keefak":   true,
	"shu":      true,
	"sho":      true,
	"leish":    true,
	"laysh":    true,
	"mnih":     true,
	"tamam":    true,
	"tmam":     true,
	"akeed":    true,
	"bade":     true,
	"badi":     true,
	"baddi":    true,
	"bdi":      true,
	"sah":      true,
	"aywa":     true,
	"msh":      true,
	"mish":     true,
	"mish3an":  true,
	"ktir":     true,
	"kteer":    true,
	"shway":    true,
	"shwaya":   true,
	"halla":    true,
	"bokra":    true,
	"bukra":    true,
	"mumkin":   true,
	"momken":   true,
	"fi":       true,
	"fee":      true,
	"mafi":     true,
	"mafee":    true,
	"ana":      true,
	"enta":     true,
	"inta":     true,
	"salam":    true,
	"marhaba":  true,
	"addeish":  true,
	"adeish":   true,
	"bkam":     true,
	"kam":      true,
	"hayda":    true,
	"hayde":    true,
	"heik":     true,
	"hek":      true,
	"lw":       true,
	"lao":      true,
	"iza":      true,
	"baddak":   true,
	"baddik":   true,
}
