// Package urgency implements the symptom urgency classifier. A fixed set of
// weighted yes/no questions is answered in order through a Quiz, the weights of
// the "yes" answers are summed and the total is mapped onto one of four ordered
// tiers (Low, Medium, High, Urgent).
package urgency
