package generator

// Categories are the flag types a synthetic verdict can carry
var Categories = []string{
	"Gaslighting 😶‍🌫️",
	"Emotional Unavailability 🙃",
	"Guilt-Tripping 😬",
	"Breadcrumbing 🍞",
	"Love Bombing 💣",
	"Future Faking 📅",
	"Benching 🪑",
	"Mystery Texts 🕵️‍♂️",
}

var Comments = []string{
	"Time to ghost 👻 and go get a croissant 🥐",
	"Redder than a lobster at a pool party.",
	"Run, don’t walk, to the nearest exit!",
	"This chat needs an exorcism 🔥",
	"Did someone order a 🚩 parade?",
	"Not even your therapist can fix this.",
	"Just say ‘new phone, who dis?’",
	"You deserve dog pics, not this.",
	"Block button looking extra clickable rn.",
}

var Illustrations = []string{
	"https://media.giphy.com/media/l2JJKs3I69qfaQleE/giphy.gif",
	"https://media.giphy.com/media/3og0IPxMM0erATueVW/giphy.gif",
	"https://media.giphy.com/media/26ufdipQqU2lhNA4g/giphy.gif",
	"https://media.giphy.com/media/12XDYvMJNcmLgQ/giphy.gif",
	"https://media.giphy.com/media/l0MYRzcWP7Jx3FAYY/giphy.gif",
	"https://media.giphy.com/media/ToMjGpx9F5ktZw8qPUQ/giphy.gif",
}

const (
	MinScore = 40
	MaxScore = 99
)
