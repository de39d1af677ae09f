package extract

const extractFactsPrompt = `You are a character-fact extraction system for a narrative role-playing game. Analyze the player's free-text description and extract structured character facts.

Target fields: %s

For each fact found, report:
- field: one of the target fields
- value: a short canonical value (e.g. "Half-Elf", not "a half elven woman")
- confidence: 0.0-1.0, how certain the text supports this value

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"field":"race","value":"Half-Elf","confidence":0.95},{"field":"class","value":"Ranger","confidence":0.9}]

If nothing can be extracted, respond with an empty array: []

Player text:
%s`
