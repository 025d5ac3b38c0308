package roster

// DefaultVocabulary returns the phrases and guard roster that ship with patrolaudit.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		StartPhrase:     "INICIO RONDA PORTARIA",
		DischargePhrase: "DESCARGA DE COLETOR EFETUADA",
		Guards: []string{
			"JOÃO", "ROBSON", "MATIAS", "EDUARDO",
			"CARLOS", "FERNANDO", "MARCOS", "PAULO",
		},
		HeaderPrefixes: []string{"Data e Hora"},
		UnknownGuard:   "Unknown",
	}
}
