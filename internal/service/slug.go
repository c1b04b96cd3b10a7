package service

import (
	"fmt"
	"strings"
)

// slugify приводит произвольное имя к виду, пригодному для username:
// нижний регистр, последовательности не-алфавитно-цифровых символов заменяются дефисом.
func slugify(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))

	var b strings.Builder
	lastDash := true // не начинаем с дефиса
	for _, r := range input {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// slugifyUniquely возвращает первое свободное имя по детерминированной схеме:
// base, base-1, base-2, ... taken сообщает, занят ли кандидат.
func slugifyUniquely(base string, taken func(candidate string) (bool, error)) (string, error) {
	slug := slugify(base)
	if slug == "" {
		slug = "user"
	}

	for i := 0; ; i++ {
		candidate := slug
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", slug, i)
		}
		exists, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}
