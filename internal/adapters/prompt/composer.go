package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/mikey/llm-smish-guard/internal/core"
	"go.uber.org/zap"
)

const exampleBlockPlaceholder = "{example_block}"
const messagePlaceholder = "{sms_text}"

// defaultFullTemplate is used when no template file is configured or the
// configured file cannot be read.
const defaultFullTemplate = `## GOAL ##
Classify SMS messages as 'smishing' or 'benign' based solely on **intent to deceive or defraud**, not on emotion, tone, or urgency.

## ROLE ##
You are an SMS cybersecurity analyst specializing in detecting benign and SMS phishing with a focus on verifiable fraudulent attempts to gain sensitive information (e.g, personal identity information, passwords, credentials, financial details, account access) or to induce clicks on demonstrably malicious links or call a number leading to fraud or compromise.

## DEFINITIONS ##
- 'Smishing': A fraudulent SMS aiming to deceive the recipient into doing harm to themselves (e.g., clicking a malicious link, sharing financial and identity credentials, sending money).

- 'Benign': a legitimate and harmless SMS that does not explicitly seek to defraud and phish for sensitive information. This includes casual, personal, informal, or conversational messages, even if they contain slang, emotional language, express urgency, or are socially inappropriate, as long as they lack a direct, verifiable fraudulent intent related to financial or personal identity data compromise.

## GUIDELINES ##
The purpose of the message is paramount to classify the message: Is it trying to defraud or steal sensitive information/money, or is it a normal, albeit informal or urgent, communication?
1. Classify only if there is a clear **malicious objective** like phishing, impersonation, or trickery.
2. Do **not** classify based on:
   - Flirtation or emotional tone
   - Urgency or imperative verbs alone
   - Mentions of money, sex, or violence if not tied to deception
   - Personal or sensitive questions *without* an obvious fraud tactic

## COUNTERFACTUAL RULE ##
You must provide a counterfactual, counterfactual must be the **minimum change** that removes or adds **intent to deceive**. Not tone. Not formatting. Not urgency.

## EXAMPLES ##
{example_block}

## INPUT MESSAGE ##
"{sms_text}"

## OUTPUT FORMAT ##
## Classification: smishing or benign
## Explanation: Highlight only the **intent-driven clues** (e.g., impersonation, deceptive link, fraudulent ask). Avoid tone-based reasoning - no more than 35 words.
## Counterfactual: [Minimal, plausible change that flips **intent** - e.g., remove phishing link, remove impersonation, add credential request]`

// leanTemplate is the compact prompt used by default. Grounding quality is
// traded for latency and token budget.
const leanTemplate = `## GOAL ##
Classify SMS as 'smishing' or 'benign' based on intent to deceive.

## ROLE ##
SMS cybersecurity analyst detecting fraudulent attempts to gain sensitive information or induce clicks on malicious links.

## DEFINITIONS ##
- 'Smishing': Fraudulent SMS aiming to deceive (malicious links, credential requests, impersonation)
- 'Benign': Legitimate SMS without fraudulent intent

## EXAMPLES ##
{example_block}

## INPUT MESSAGE ##
"{sms_text}"

## OUTPUT FORMAT ##
## Classification: smishing or benign
## Explanation: [Key indicators - max 25 words]
## Counterfactual: [Minimal change to flip intent]`

const fallbackPromptFormat = `Analyze the following SMS message and classify it as either "BENIGN" or "SMISHING".

SMS: "%s"

Consider these indicators for smishing:
- Urgent requests for personal information
- Suspicious links or phone numbers
- Requests for immediate action
- Offers that seem too good to be true
- Threats or pressure tactics
- Requests for financial information

Respond with only: BENIGN or SMISHING`

const explanationPromptFormat = `Explain why this SMS message is classified as smishing:

From: %s
Message: %s

Provide a brief explanation of the suspicious elements detected in less than 2 sentences.`

// Composer renders grounded and fallback classification prompts. Template
// expansion is deterministic; the only variance is the retrieved examples.
type Composer struct {
	logger          *zap.Logger
	templatePath    string
	useFullTemplate bool
	maxExamples     int
	template        string
	initialized     bool
}

// NewComposer creates a prompt composer. Initialize must be called before use.
func NewComposer(templatePath string, useFullTemplate bool, maxExamplesPerClass int, logger *zap.Logger) *Composer {
	if maxExamplesPerClass <= 0 {
		maxExamplesPerClass = 1
	}
	return &Composer{
		logger:          logger,
		templatePath:    templatePath,
		useFullTemplate: useFullTemplate,
		maxExamples:     maxExamplesPerClass,
	}
}

// Initialize loads the prompt template. A missing template file falls back to
// the embedded default and is not an error.
func (c *Composer) Initialize() error {
	c.template = leanTemplate
	if c.useFullTemplate {
		c.template = c.loadFullTemplate()
	}
	c.initialized = true
	c.logger.Debug("Prompt composer initialized",
		zap.Bool("full_template", c.useFullTemplate),
		zap.Int("max_examples_per_class", c.maxExamples))
	return nil
}

func (c *Composer) loadFullTemplate() string {
	if c.templatePath == "" {
		return defaultFullTemplate
	}
	data, err := os.ReadFile(c.templatePath)
	if err != nil {
		c.logger.Error("Failed to load prompt template, using embedded default",
			zap.String("path", c.templatePath),
			zap.Error(err))
		return defaultFullTemplate
	}
	return string(data)
}

// Compose renders the grounded classification prompt. The number of rendered
// examples per class is capped to bound prompt length.
func (c *Composer) Compose(text string, benign []core.ReferenceExample, smishing []core.ReferenceExample) string {
	if len(benign) > c.maxExamples {
		benign = benign[:c.maxExamples]
	}
	if len(smishing) > c.maxExamples {
		smishing = smishing[:c.maxExamples]
	}

	composed := strings.Replace(c.template, exampleBlockPlaceholder, c.examplesBlock(benign, smishing), 1)
	composed = strings.Replace(composed, messagePlaceholder, text, 1)

	c.logger.Debug("Composed grounded prompt",
		zap.Int("benign_examples", len(benign)),
		zap.Int("smishing_examples", len(smishing)),
		zap.Int("prompt_length", len(composed)))

	return composed
}

// examplesBlock renders benign lines first, then smishing lines, with a blank
// line between the groups only when both are non-empty.
func (c *Composer) examplesBlock(benign, smishing []core.ReferenceExample) string {
	var b strings.Builder
	for i, example := range benign {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "benign: %q", example.Text)
	}
	if len(benign) > 0 && len(smishing) > 0 {
		b.WriteString("\n\n")
	}
	for i, example := range smishing {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "smishing: %q", example.Text)
	}
	return b.String()
}

// FallbackPrompt renders the example-free classification prompt used when no
// embedding is available.
func (c *Composer) FallbackPrompt(text string) string {
	return fmt.Sprintf(fallbackPromptFormat, text)
}

// ExplanationPrompt renders the prompt asking why a message is smishing.
func (c *Composer) ExplanationPrompt(sender string, text string) string {
	return fmt.Sprintf(explanationPromptFormat, sender, text)
}
