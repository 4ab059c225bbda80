// Package triage provides the business boundary for SmileCare's symptom
// assessments. It defines the Service (session lifecycle, async
// classification, notification), the Store interface (persistence) and the
// Assessment model. Scoring itself lives in package urgency.
package triage
