/*
Package registry holds the ordered roster of experts consulted by the panel.

Insertion order is preserved and is the canonical order used for output
formatting. Readers take an immutable View (copy-on-read); writers are
serialized so the id uniqueness invariant holds under concurrent mutation.

Rosters are imported and exported as a document keyed by expert id:

	{
	  "risk_manager": {
	    "description": "Evaluates legal, security and operational risk.",
	    "name": "Risk Manager",
	    "avatar": "⚖️"
	  }
	}

The same shape is accepted in YAML. Imports are all-or-nothing.
*/
package registry
