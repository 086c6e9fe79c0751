package identity

// ValidCPFCNPJ reports whether s is a CPF (11 digits) or CNPJ (14 digits) with
// correct check digits. Punctuation is ignored; repeated-digit numbers are rejected.
func ValidCPFCNPJ(s string) bool {
	d := documentDigits(s)
	switch len(d) {
	case 11:
		return validCPF(d)
	case 14:
		return validCNPJ(d)
	default:
		return false
	}
}

func documentDigits(s string) []int {
	d := make([]int, 0, 14)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			d = append(d, int(r-'0'))
		}
	}
	return d
}

func allSame(d []int) bool {
	for _, n := range d[1:] {
		if n != d[0] {
			return false
		}
	}
	return true
}

func validCPF(d []int) bool {
	if allSame(d) {
		return false
	}
	for n := 9; n <= 10; n++ {
		sum := 0
		for i := range n {
			sum += d[i] * (n + 1 - i)
		}
		check := 11 - sum%11
		if check >= 10 {
			check = 0
		}
		if check != d[n] {
			return false
		}
	}
	return true
}

func validCNPJ(d []int) bool {
	if allSame(d) {
		return false
	}
	for n := 12; n <= 13; n++ {
		sum, weight := 0, n-7
		for i := range n {
			sum += d[i] * weight
			if weight--; weight < 2 {
				weight = 9
			}
		}
		check := 0
		if sum%11 >= 2 {
			check = 11 - sum%11
		}
		if check != d[n] {
			return false
		}
	}
	return true
}
