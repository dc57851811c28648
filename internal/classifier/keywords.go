package classifier

// Keyword banks are intentionally multilingual (spec.md §4.1: "nine
// scripts: English, Chinese, Japanese, Russian, German, Spanish,
// Portuguese, Korean, Arabic"). Matching is substring containment over the
// lowercased combined text; order is irrelevant.

var codeKeywords = []string{
	// English
	"function", "class", "algorithm", "code", "refactor", "compile", "debug",
	"stack trace", "regex", "api", "sql", "async", "goroutine", "pointer",
	// Chinese
	"函数", "类", "算法", "代码", "重构", "编译", "调试",
	// Japanese
	"関数", "クラス", "アルゴリズム", "コード", "デバッグ",
	// Russian
	"функция", "класс", "алгоритм", "код", "отладка",
	// German
	"funktion", "klasse", "algorithmus", "quellcode",
	// Spanish
	"función", "clase", "algoritmo", "código",
	// Portuguese
	"função", "classe", "algoritmo", "código",
	// Korean
	"함수", "클래스", "알고리즘", "코드",
	// Arabic
	"دالة", "صنف", "خوارزمية", "كود",
}

var reasoningKeywords = []string{
	"prove", "proof", "step by step", "reasoning", "derive", "theorem",
	"why does", "explain the logic", "think through", "deduce",
	"证明", "推理", "逐步", "推导",
	"証明", "推論", "段階的に",
	"докажи", "доказательство", "рассуждение",
	"beweis", "begründe", "schritt für schritt",
	"demuestra", "razonamiento", "paso a paso",
	"prove que", "raciocínio", "passo a passo",
	"증명", "추론", "단계별로",
	"أثبت", "استدلال", "خطوة بخطوة",
}

var technicalKeywords = []string{
	"architecture", "protocol", "encryption", "latency", "throughput",
	"concurrency", "distributed", "kubernetes", "microservice", "database",
	"schema", "index", "cache", "compiler", "kernel",
	"架构", "协议", "加密", "延迟", "并发", "分布式",
	"アーキテクチャ", "プロトコル", "暗号化", "並行性",
	"архитектура", "протокол", "шифрование", "параллелизм",
	"architektur", "protokoll", "verschlüsselung",
	"arquitectura", "protocolo", "cifrado",
	"arquitetura", "protocolo", "criptografia",
	"아키텍처", "프로토콜", "암호화",
	"معمارية", "بروتوكول", "تشفير",
}

var creativeKeywords = []string{
	"write a story", "poem", "novel", "creative", "imagine", "fictional",
	"metaphor", "brainstorm", "short story",
	"故事", "诗歌", "创意", "小说",
	"物語", "詩", "創造的",
	"история", "стихотворение", "творческий",
	"geschichte", "gedicht", "kreativ",
	"historia", "poema", "creativo",
	"história", "poema", "criativo",
	"이야기", "시", "창의적인",
	"قصة", "قصيدة", "إبداعي",
}

var simpleIndicatorKeywords = []string{
	"what is", "define", "translate", "capital of", "how many",
	"spell", "meaning of", "yes or no",
	"是什么", "翻译", "首都是",
	"とは", "翻訳", "首都",
	"что такое", "переведи", "столица",
	"was ist", "übersetze", "hauptstadt",
	"qué es", "traduce", "capital de",
	"o que é", "traduza", "capital de",
	"무엇인가", "번역", "수도",
	"ما هو", "ترجم", "عاصمة",
}

var imperativeKeywords = []string{
	"implement", "build", "create", "design", "optimize", "migrate",
	"refactor", "integrate", "deploy", "automate",
}

var constraintKeywords = []string{
	"must not", "should never", "only if", "unless", "except when",
	"strictly", "required to", "constraint", "limited to",
}

var outputFormatKeywords = []string{
	"json", "yaml", "xml", "csv", "markdown table", "bullet list",
	"return as", "format as",
}

var referenceComplexityKeywords = []string{
	"as mentioned above", "referring to", "per the previous", "see above",
	"as discussed", "earlier you said",
}

var negationKeywords = []string{
	"not", "never", "without", "excluding", "don't", "cannot", "isn't",
	"aren't", "no longer",
}

var domainSpecificityKeywords = []string{
	"quantum", "zero-knowledge", "homomorphic", "byzantine fault",
	"renormalization", "epigenetics", "topology", "thermodynamics",
	"量子", "零知识", "同态", "拓扑学",
	"量子", "ゼロ知識", "熱力学",
	"квантовый", "гомоморфный", "топология",
	"quanten", "null-wissen", "topologie",
	"cuántico", "conocimiento cero", "topología",
	"quântico", "conhecimento zero", "topologia",
	"양자", "영지식", "위상수학",
	"كمي", "معرفة صفرية", "طوبولوجيا",
}

var agenticKeywords = []string{
	"use the tool", "call the api", "browse the web", "run the command",
	"execute", "search the web", "open the file", "click the button",
	"navigate to", "autonomous", "multi-step task", "orchestrate",
	"使用工具", "调用api", "执行命令",
	"ツールを使う", "コマンドを実行",
	"используй инструмент", "вызови api",
	"werkzeug benutzen", "befehl ausführen",
	"usa la herramienta", "ejecuta el comando",
	"use a ferramenta", "execute o comando",
	"도구를 사용", "명령을 실행",
	"استخدم الأداة", "نفذ الأمر",
}
