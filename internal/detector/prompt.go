package detector

import (
	"fmt"
	"strings"
)

// DataPlaceholder is the substitution marker the prompt template must
// contain exactly once.
const DataPlaceholder = "DATA_PLACEHOLDER"

// DefaultPromptTemplate is the fraud-scoring rubric sent to the model.
// The indexed posts replace DATA_PLACEHOLDER. Scoring definitions are
// content, not pipeline logic: operators may swap the whole template via
// llm.prompt_template_file as long as the placeholder is present.
const DefaultPromptTemplate = `# TAREFA
Você é um especialista em análise de fraudes e golpes. Sua tarefa é analisar textos curtos e atribuir uma probabilidade (0 a 1) de que o texto descreva alguém que EFETIVAMENTE SOFREU um golpe ou fraude.

# DEFINIÇÃO DE GOLPE
Um golpe/fraude ocorre quando:
- Houve PERDA REAL de dinheiro, bens ou dados através de engano intencional
- A vítima foi ENGANADA para realizar uma ação prejudicial (transferir dinheiro, entregar produto, fornecer dados)
- Existe um PREJUÍZO CONCRETO já consumado ou em andamento

# IMPORTANTE SOBRE A VÍTIMA
**A vítima pode ser QUALQUER PESSOA mencionada no texto:**
- O próprio autor ("fui enganado", "perdi dinheiro", "me roubaram")
- Familiar ("minha mãe caiu em golpe", "meu pai perdeu dinheiro")
- Amigo/conhecido ("meu amigo foi vítima", "um colega perdeu dinheiro")
- Cliente ("um cliente meu sofreu golpe")
- Qualquer terceiro mencionado ("fulano foi enganado", "ela perdeu dinheiro")

**O QUE IMPORTA:** Alguém específico sofreu prejuízo real por golpe, independente de quem seja.

# O QUE NÃO É GOLPE (probabilidade BAIXA 0.0-0.3):

**1. DISCUSSÃO GENÉRICA sobre golpes**
- "Cuidado com golpes de PIX"
- "Existem muitos golpes hoje em dia"
- "Como evitar golpes?"

**2. NOTÍCIAS sobre golpes**
- Manchetes jornalísticas
- Reportagens sobre casos
- Notícias sem relato pessoal de vítima específica

**3. QUASE-GOLPES (sem prejuízo efetivo)**
- "Quase caí no golpe mas percebi a tempo"
- "Recebi mensagem suspeita mas bloqueei"
- "Tentaram me enganar mas não conseguiram"

# O QUE É GOLPE (probabilidade ALTA 0.7-1.0):

**1. RELATO DIRETO de prejuízo (primeira ou terceira pessoa)**
- "Perdi dinheiro em golpe" / "Minha mãe perdeu dinheiro"
- "Fizeram PIX da conta dele sem autorização"
- "Comprei e não recebi" / "Ela comprou e não recebeu"
- "Me enganaram" / "Enganaram meu pai"
- "Caí num golpe" / "Meu amigo caiu num golpe"

**2. DESCRIÇÃO DETALHADA do golpe sofrido (por qualquer pessoa)**
- Narrativa explicando como alguém foi enganado
- Detalhes da transação fraudulenta sofrida
- Descrição do prejuízo (valores NÃO precisam estar explícitos)

**3. PEDIDO DE AJUDA após vitimização (própria ou de terceiros)**
- "Sofri golpe, o que fazer?"
- "Meu pai sofreu golpe, como ajudar?"
- "Um amigo foi enganado, o que fazer?"

# ESCALA DE PROBABILIDADE
- **0.0 - 0.2**: Claramente NÃO é relato de golpe (notícia, discussão, alerta)
- **0.3 - 0.4**: Provavelmente não é (contexto incerto, pode ser apenas discussão)
- **0.5 - 0.6**: Ambíguo (pode ser golpe mas faltam detalhes claros)
- **0.7 - 0.8**: Provavelmente é (indícios fortes de vitimização)
- **0.9 - 1.0**: Claramente É relato de golpe (prejuízo real relatado)

# INPUT
Você receberá uma lista de x textos indexados no formato:
<0>texto do relato</0>
<1>texto do relato</1>
...
<19>texto do relato</19>

# OUTPUT
Retorne APENAS um JSON válido no formato:
` + "```json" + `
{
  "0": 0.95,
  "1": 0.15,
  "2": 0.60,
  "3": 0.85,
  ...
  "19": 0.30
}
` + "```" + `

**IMPORTANTE**:
- As keys devem ser strings com os índices ("0", "1", "2", etc.) preservando EXATAMENTE o índice associado ao texto no input
- Os values devem ser números entre 0.0 e 1.0
- Retorne APENAS o JSON, sem texto adicional antes ou depois

# OBSERVAÇÕES CRÍTICAS
- **NOTÍCIAS não são relatos**: Reportagens sobre golpes = probabilidade BAIXA
- **QUASE-GOLPES não contam**: Se não houve prejuízo efetivo = probabilidade BAIXA
- **A VÍTIMA PODE SER QUALQUER PESSOA**: Autor, familiar, amigo, conhecido, cliente, etc.
- **VALORES NÃO PRECISAM estar explícitos**: O prejuízo pode ser descrito sem montantes específicos
- **SÓ ALTA probabilidade quando houver indicação clara de PREJUÍZO REAL sofrido por alguém específico**
- Use a escala completa de 0.0 a 1.0 com granularidade

INPUT:
` + DataPlaceholder

// RenderPrompt substitutes the batch's indexed posts into the template.
// Post text is injected as-is; the rubric instructs the model to cope
// with embedded delimiters.
func RenderPrompt(template string, b Batch) string {
	var sb strings.Builder
	for i, post := range b.Posts {
		if i > 0 {
			sb.WriteByte('\n')
		}
		idx := b.Offset + i
		fmt.Fprintf(&sb, "<%d>%s</%d>", idx, post.Text, idx)
	}
	return strings.Replace(template, DataPlaceholder, sb.String(), 1)
}

// ValidateTemplate checks that the template carries exactly one
// substitution placeholder.
func ValidateTemplate(template string) error {
	switch strings.Count(template, DataPlaceholder) {
	case 1:
		return nil
	case 0:
		return errMissingPlaceholder
	default:
		return errDuplicatePlaceholder
	}
}
