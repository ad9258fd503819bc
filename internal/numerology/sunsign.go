package numerology

type zodiacRange struct {
	sign       string
	startMonth int
	startDay   int
	endMonth   int
	endDay     int
}

// Approximate tropical boundaries; the real cusp moves by a day between years.
var zodiac = []zodiacRange{
	{"Capricorn", 12, 22, 1, 19},
	{"Aquarius", 1, 20, 2, 18},
	{"Pisces", 2, 19, 3, 20},
	{"Aries", 3, 21, 4, 19},
	{"Taurus", 4, 20, 5, 20},
	{"Gemini", 5, 21, 6, 20},
	{"Cancer", 6, 21, 7, 22},
	{"Leo", 7, 23, 8, 22},
	{"Virgo", 8, 23, 9, 22},
	{"Libra", 9, 23, 10, 22},
	{"Scorpio", 10, 23, 11, 21},
	{"Sagittarius", 11, 22, 12, 21},
}

// SunSign returns the approximate sun sign for a date
func SunSign(d Date) string {
	for _, z := range zodiac {
		if d.Month == z.startMonth && d.Day >= z.startDay {
			return z.sign
		}
		if d.Month == z.endMonth && d.Day <= z.endDay {
			return z.sign
		}
	}
	return "Unknown"
}
