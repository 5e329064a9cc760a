// Package alias generates human-readable display names that stand in for a
// user's real identity inside anonymous chat sessions. Aliases are readable,
// not unique: collisions are harmless because identity is carried by the anon
// user id, never by the alias.
package alias

import (
	"fmt"
	"math/rand"
)

var colors = []string{"Blue", "Green", "Purple", "Orange", "Pink", "Yellow", "Red", "Teal"}

var animals = []string{"Tiger", "Eagle", "Wolf", "Fox", "Bear", "Lion", "Owl", "Deer", "Cat", "Dog"}

// Generate returns a random alias of the form ColorAnimalNumber, e.g. "BlueFox42".
func Generate() string {
	color := colors[rand.Intn(len(colors))]
	animal := animals[rand.Intn(len(animals))]
	return fmt.Sprintf("%s%s%d", color, animal, rand.Intn(100))
}
