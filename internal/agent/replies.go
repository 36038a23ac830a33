package agent

import (
	"fmt"
	"strconv"
)

func (a *Agent) sampleReply(lang Language, name string, disclose bool) string {
	var reply string
	switch lang {
	case Marathi:
		reply = fmt.Sprintf("Namaskar %s, mi %s. Tumchi requirement samajli. Aapan sample pathvu shakto. Tumhi site location pathval ka?", name, a.params.Name)
	case Hindi:
		reply = fmt.Sprintf("Namaste %s, %s here. Maine aapki requirement dekhi. Kya aap site location share kar sakte hain taaki main sahi samples suggest karoon?", name, a.params.Name)
	default:
		reply = fmt.Sprintf("Hi %s, %s here. I understand your requirement. Could you share your site location so I can suggest the perfect samples?", name, a.params.Name)
	}
	if !disclose {
		return reply
	}

	charge := rupees(a.params.SampleCharge)
	switch lang {
	case Marathi:
		return reply + fmt.Sprintf(" Sample box sathi %s courier charge aahe.", charge)
	case Hindi:
		return reply + fmt.Sprintf(" Sample box ka courier charge %s hai.", charge)
	default:
		return reply + fmt.Sprintf(" There is a courier charge of %s for the sample box.", charge)
	}
}

func askAreaReply(lang Language, name string) string {
	switch lang {
	case Marathi:
		return fmt.Sprintf("Namaskar %s, rate quantity var avalambun aahe. Tumhala kiti sqft kaam aahe?", name)
	case Hindi:
		return fmt.Sprintf("Namaste %s, rate quantity par depend karta hai. Aapko kitne sqft ka kaam hai?", name)
	default:
		return fmt.Sprintf("Hi %s, happy to help with rates. Could you share the approximate area in sqft? Rates depend on quantity.", name)
	}
}

func askProductReply(lang Language, name string, area float64) string {
	sqft := strconv.FormatFloat(area, 'f', -1, 64)
	switch lang {
	case Marathi:
		return fmt.Sprintf("Namaskar %s, %s sqft sathi konta product pahije? Wirecut bricks, cladding tiles ki jali?", name, sqft)
	case Hindi:
		return fmt.Sprintf("Namaste %s, %s sqft ke liye kaunsa product chahiye? Wirecut bricks, cladding tiles ya jali?", name, sqft)
	default:
		return fmt.Sprintf("Hi %s, which product are you considering for the %s sqft? Wirecut bricks, cladding tiles or jalis?", name, sqft)
	}
}

func quoteReply(lang Language, name string, q Quote) string {
	sqft := strconv.FormatFloat(q.Area, 'f', -1, 64)
	unit, rate := rupees(q.UnitPrice), rupees(q.RatePerSqft)
	switch lang {
	case Marathi:
		return fmt.Sprintf("Namaskar %s, %s sqft %s sathi rate %s/piece aahe, mhanje sumare %s/sqft (ex-factory). Transport vegla lagel, krupaya site cha PINCODE pathva.", name, sqft, q.Product, unit, rate)
	case Hindi:
		return fmt.Sprintf("Namaste %s, %s sqft %s ke liye rate %s/piece hai, yaani lagbhag %s/sqft (ex-factory). Transport alag se lagega, kripya site ka PINCODE bhejiye.", name, sqft, q.Product, unit, rate)
	default:
		return fmt.Sprintf("Hi %s, for %s sqft of %s the rate is %s/piece, about %s/sqft (ex-factory). Transport is billed separately, so please share your site PINCODE.", name, sqft, q.Product, unit, rate)
	}
}

func installationReply(lang Language, name string) string {
	switch lang {
	case Marathi:
		return fmt.Sprintf("Namaskar %s, installation sathi aamchi partner team aahe. Mi team barobar check karun 30-60 minitat sangto.", name)
	case Hindi:
		return fmt.Sprintf("Namaste %s, installation ke liye hamari partner team hai. Main team se check karke 30-60 minute mein batata hoon.", name)
	default:
		return fmt.Sprintf("Hi %s, we can help with installation through our partner team. Let me check availability and get back to you in 30-60 minutes.", name)
	}
}

func locationReply(lang Language, name, store string) string {
	switch lang {
	case Marathi:
		return fmt.Sprintf("Namaskar %s, aamche sagle products %s madhe baghu shakta. Visit book karaycha ka?", name, store)
	case Hindi:
		return fmt.Sprintf("Namaste %s, aap hamare saare products %s mein dekh sakte hain. Kya visit book karein?", name, store)
	default:
		return fmt.Sprintf("Hi %s, you can see all our products at %s. Our factory is in Madhya Pradesh. Shall I book a visit for you?", name, store)
	}
}

func casualReply(lang Language) string {
	switch lang {
	case Hindi:
		return "Ji boliye, main kaise madad kar sakta hoon?"
	case Marathi:
		return "Ho, sanga, mi kashi madat karu shakto?"
	default:
		return "Sure, how can I help you?"
	}
}

// rupees prints whole amounts without decimals.
func rupees(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("₹%d", int64(v))
	}
	return fmt.Sprintf("₹%.2f", v)
}
