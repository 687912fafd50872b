package feature

import (
	"regexp"
	"strings"
)

// URL shapes. The general pattern intentionally also matches bare
// "domain.tld" forms, since chat spam rarely bothers with a scheme.
var (
	domainPattern = regexp.MustCompile(
		`(?i)(?:https?://)?(?:www\.)?([a-z0-9][-a-z0-9]*(?:\.[-a-z0-9]+)*\.[a-z]{2,})`)

	obfuscatedURLPattern = regexp.MustCompile(
		`(?i)[-a-z0-9]{2,}\s*(?:\[dot\]|\(dot\)|d0t|\.\s+)\s*(?:com|net|org|tv|gg|co|io|xyz|me)\b`)
)

// High-confidence spam phrases, matched against both raw and normalized
// text. Each carries a stable name for the audit trail.
var spamPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"followbot", regexp.MustCompile(`(?i)(?:buy|get|cheap|free)\s*(?:followers?|views?|viewers?|subs?)`)},
	{"fame-promo", regexp.MustCompile(`(?i)(?:become|get|go)\s*(?:famous|viral|popular)`)},
	{"growth-promo", regexp.MustCompile(`(?i)(?:grow|boost|increase)\s*(?:your\s*)?(?:channel|stream|followers?)`)},
	{"viewbot", regexp.MustCompile(`(?i)view\s*bot|follow\s*bot|viewbot|followbot`)},
	{"crypto-double", regexp.MustCompile(`(?i)(?:double|triple|10x)\s*(?:your\s*)?(?:crypto|btc|eth|bitcoin|ethereum)`)},
	{"crypto-giveaway", regexp.MustCompile(`(?i)(?:free|giving away)\s*(?:crypto|btc|eth|bitcoin|nft)`)},
	{"airdrop", regexp.MustCompile(`(?i)(?:claim|receive)\s*(?:your|free)\s*(?:airdrop|tokens?|nft)`)},
	{"phishing-suspension", regexp.MustCompile(`(?i)(?:account|channel)\s*(?:will be|is being|has been)\s*(?:suspended|banned|terminated)`)},
	{"phishing-verify", regexp.MustCompile(`(?i)(?:urgent|immediately|now)\s*(?:verify|confirm|validate)\s*(?:your\s*)?(?:account|email)`)},
	{"staff-impersonation", regexp.MustCompile(`(?i)twitch\s*(?:staff|support|admin|team)`)},
	{"adult-promo", regexp.MustCompile(`(?i)(?:onlyfans|fansly)\s*.*(?:link|bio|profile|free)`)},
	{"bio-bait", regexp.MustCompile(`(?i)(?:check|link in)\s*(?:my\s*)?bio`)},
}

// matchSpamPatterns returns the names of patterns hitting either form of the
// text. A hit only on the normalized form means the sender tried to hide it,
// which the audit trail records with an "-obfuscated" suffix.
func matchSpamPatterns(raw, normalized string) []string {
	var hits []string
	for _, p := range spamPatterns {
		if p.re.MatchString(raw) {
			hits = append(hits, p.name)
			continue
		}
		if normalized != "" && !strings.EqualFold(raw, normalized) && p.re.MatchString(normalized) {
			hits = append(hits, p.name+"-obfuscated")
		}
	}
	return hits
}

// ExtractDomains pulls lower-cased domains out of raw text.
func ExtractDomains(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range domainPattern.FindAllStringSubmatch(raw, -1) {
		d := strings.ToLower(strings.TrimSuffix(m[1], "."))
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// DomainAllowed reports whether a domain matches the allow-list, including
// subdomains of allowed entries.
func DomainAllowed(domain string, allowed []string) bool {
	for _, a := range allowed {
		if domain == a || strings.HasSuffix(domain, "."+a) {
			return true
		}
	}
	return false
}

// DomainBlocked is the blocklist counterpart of DomainAllowed.
func DomainBlocked(domain string, blocked []string) bool {
	for _, b := range blocked {
		if domain == b || strings.HasSuffix(domain, "."+b) {
			return true
		}
	}
	return false
}
