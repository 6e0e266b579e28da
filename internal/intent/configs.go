package intent

import "regexp"

// Intent ids shipped with the two built-in configurations.
const (
	IntentPostQuestion = "post_question"
	IntentFetchFile    = "fetch_file"
)

// postBlockPatterns veto the posting intent for questions ABOUT the board
// itself, in French and English.
var postBlockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(c['’]?est\s+quoi|qu['’]?est[- ]ce\s+que?)\b.*\bed\b`),
	regexp.MustCompile(`(?i)\bcomment\s+(marche|fonctionne|utiliser?)\b.*\bed\b`),
	regexp.MustCompile(`(?i)\b(où|ou)\s+(trouver?|est)\b.*\bed\b`),
	regexp.MustCompile(`(?i)\bexplique[rz]?\b.*\bed\b`),
	regexp.MustCompile(`(?i)\bwhat\s+is\b.*\bed\b`),
	regexp.MustCompile(`(?i)\bhow\s+(does|do|to)\s+(use|work)\b.*\bed\b`),
	regexp.MustCompile(`(?i)\bwhere\s+(is|can\s+i\s+find)\b.*\bed\b`),
	regexp.MustCompile(`(?i)\bexplain\b.*\bed\b`),
	regexp.MustCompile(`(?i)\btell\s+me\s+about\b.*\bed\b`),
}

// fetchBlockPatterns veto the file-fetch intent for questions ABOUT the
// course platform.
var fetchBlockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(c['’]?est\s+quoi|qu['’]?est[- ]ce\s+que?)\b.{0,50}\bmoodle\b`),
	regexp.MustCompile(`(?i)\bcomment\s+(marche|fonctionne|utiliser?)\b.{0,50}\bmoodle\b`),
	regexp.MustCompile(`(?i)\b(où|ou)\s+(trouver?|est)\b.{0,50}\bmoodle\b`),
	regexp.MustCompile(`(?i)\bexplique[rz]?\b.{0,50}\bmoodle\b`),
	regexp.MustCompile(`(?i)\bwhat\s+is\b.{0,50}\bmoodle\b`),
	regexp.MustCompile(`(?i)\bhow\s+(does|do|to)\s+(use|work)\b.{0,50}\bmoodle\b`),
	regexp.MustCompile(`(?i)\bwhere\s+(is|can\s+i\s+find)\b.{0,50}\bmoodle\b`),
	regexp.MustCompile(`(?i)\bexplain\b.{0,50}\bmoodle\b`),
	regexp.MustCompile(`(?i)\btell\s+me\s+about\b.{0,50}\bmoodle\b`),
}

// PostIntentConfigs matches requests to publish something on the discussion
// board, in French and English.
func PostIntentConfigs() []Config {
	return []Config{
		{
			ID: IntentPostQuestion,
			MatchPatterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(post[eé]?[rz]?|publi[eé]?[rz]?)\b.*\b(sur|à|a)\s+(ed|edstem|ed\s*discussion)`),
				regexp.MustCompile(`(?i)\b(met[st]?[rz]?|mettre|ajoute[rz]?)\b.*\b(sur|à|a)\s+(ed|edstem|ed\s*discussion)`),
				regexp.MustCompile(`(?i)\b(envoie[rz]?|envoyer)\b.*\b(sur|à|a)\s+(ed|edstem|ed\s*discussion)`),
				regexp.MustCompile(`(?i)\b(pose[rz]?|demande[rz]?)\b.*\b(sur|à|a)\s+(ed|edstem|ed\s*discussion)`),
				regexp.MustCompile(`(?i)\bpartage[rz]?\b.*\b(sur|à|a)\s+(ed|edstem|ed\s*discussion)`),
				regexp.MustCompile(`(?i)\b(cr[ée]{1,2}[rz]?|faire?|fais)\b.*\b(post|thread|discussion|sujet)\b.*\b(sur|à|a)\s+(ed|edstem)`),
				regexp.MustCompile(`(?i)\b(je\s+(veux|voudrais|souhaite)|peux[- ]tu|tu\s+peux)\b.*\b(post[eé]?[rz]?|publi[eé]?[rz]?)\b.*\b(sur|à|a)\s+(ed|edstem)`),
				regexp.MustCompile(`(?i)\b(post|publish|share|send)\b.*\b(on|to)\s+(ed|edstem|ed\s*discussion)`),
				regexp.MustCompile(`(?i)\b(put|add|submit)\b.*\b(on|to)\s+(ed|edstem|ed\s*discussion)`),
				regexp.MustCompile(`(?i)\b(ask|create)\b.*\b(on|to)\s+(ed|edstem|ed\s*discussion)`),
				regexp.MustCompile(`(?i)\b(make|create|start)\b.*\b(a\s+)?(post|thread|discussion|question)\b.*\b(on|to)\s+(ed|edstem)`),
				regexp.MustCompile(`(?i)\b(can\s+you|could\s+you|please)\b.*\b(post|publish|share|send)\b.*\b(on|to)\s+(ed|edstem)`),
				regexp.MustCompile(`(?i)\b(i\s+(want|need|would\s+like))\s+(to\s+)?(post|publish|share|send)\b.*\b(on|to)\s+(ed|edstem)`),
				regexp.MustCompile(`(?i)\bpost\s+this\b.*\b(on|to)\s+(ed|edstem)`),
				regexp.MustCompile(`(?i)\bshare\s+this\b.*\b(on|to)\s+(ed|edstem)`),
			},
			BlockPatterns: postBlockPatterns,
		},
	}
}

// FetchFileIntentConfigs matches requests to fetch a course file. The
// patterns are deliberately broad; ExtractFileInfo refines the match into a
// concrete file type and number.
func FetchFileIntentConfigs() []Config {
	return []Config{
		{
			ID: IntentFetchFile,
			MatchPatterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(fetch|get|show|display|download|retrieve|bring)\s+(me\s+)?(the\s+)?(lecture|homework|solution|file|document|cours|moodle)`),
				regexp.MustCompile(`(?i)\b(fetch|get|show|display|download|retrieve|bring)\s+(me\s+)?(the\s+).*\bmoodle\b`),
				regexp.MustCompile(`(?i)\b(i\s+)?(want|need|would\s+like)\s+(to\s+)?(fetch|get|see|view|download|retrieve)\s+(the\s+)?(lecture|homework|solution|file|document|cours|moodle)`),
				regexp.MustCompile(`(?i)\b(donne|donner?|récupérer?|obtenir?|télécharger?|charger?|voir|afficher?|montrer?|ouvrir?|chercher?|trouver?)\s+(moi\s+)?(le\s+|la\s+|les\s+)?(cours|devoir|lecture|fichier|document|moodle)`),
				regexp.MustCompile(`(?i)\b(donne|donner?|récupérer?|obtenir?|télécharger?|charger?|voir|afficher?|montrer?|ouvrir?|chercher?|trouver?)\s+(moi\s+)?(le\s+|la\s+|les\s+)?.*\bmoodle\b`),
				regexp.MustCompile(`(?i)\b(je\s+)?(veux|voudrais|souhaite|ai\s+besoin)\s+(de\s+)?(récupérer?|obtenir?|voir|afficher?|télécharger?|donner?)\s+(le\s+|la\s+|les\s+)?(cours|devoir|lecture|fichier|document|moodle)`),
				regexp.MustCompile(`(?i)\b(lecture|leçon|lesson|devoir|homework|home\s*work|travail|solution|correction|corrigé|cours)\s+(\d+|[a-z])`),
				regexp.MustCompile(`(?i)\b(cours|leçon|lecture|devoir|homework)\s+(semaine|week)\s+\d+`),
				regexp.MustCompile(`(?i)\b(semaine|week)\s+\d+\s+(de|du|of)\s+`),
				regexp.MustCompile(`(?i)\b(sur|on|from)\s+moodle`),
			},
			BlockPatterns: fetchBlockPatterns,
		},
	}
}
