package cg

// ApplicationEntity groups the configuration of one legacy application.
type ApplicationEntity struct {
	ID          string `json:"id" yaml:"id"`
	AccountID   string `json:"accountId" yaml:"accountId"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func (e *ApplicationEntity) EntityRef() EntityRef { return Ref(Application, e.ID) }
func (e *ApplicationEntity) OwnerAppID() string   { return e.ID }
func (e *ApplicationEntity) DisplayName() string  { return e.Name }

// ServiceEntity is a deployable service.
type ServiceEntity struct {
	ID             string     `json:"id" yaml:"id"`
	AppID          string     `json:"appId" yaml:"appId"`
	Name           string     `json:"name" yaml:"name"`
	Description    string     `json:"description,omitempty" yaml:"description,omitempty"`
	DeploymentType string     `json:"deploymentType" yaml:"deploymentType"`
	ArtifactType   string     `json:"artifactType,omitempty" yaml:"artifactType,omitempty"`
	Variables      []Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
	ConfigFileIDs  []string   `json:"configFileIds,omitempty" yaml:"configFileIds,omitempty"`
}

func (e *ServiceEntity) EntityRef() EntityRef { return Ref(Service, e.ID) }
func (e *ServiceEntity) OwnerAppID() string   { return e.AppID }
func (e *ServiceEntity) DisplayName() string  { return e.Name }

// EnvironmentEntity is a deployment environment.
type EnvironmentEntity struct {
	ID          string     `json:"id" yaml:"id"`
	AppID       string     `json:"appId" yaml:"appId"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	// EnvironmentType is PROD or NON_PROD.
	EnvironmentType string     `json:"environmentType" yaml:"environmentType"`
	Variables       []Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
	ConfigFileIDs   []string   `json:"configFileIds,omitempty" yaml:"configFileIds,omitempty"`
}

func (e *EnvironmentEntity) EntityRef() EntityRef { return Ref(Environment, e.ID) }
func (e *EnvironmentEntity) OwnerAppID() string   { return e.AppID }
func (e *EnvironmentEntity) DisplayName() string  { return e.Name }

// InfrastructureEntity is an infrastructure definition inside an environment.
type InfrastructureEntity struct {
	ID             string `json:"id" yaml:"id"`
	AppID          string `json:"appId" yaml:"appId"`
	EnvID          string `json:"envId" yaml:"envId"`
	Name           string `json:"name" yaml:"name"`
	DeploymentType string `json:"deploymentType" yaml:"deploymentType"`
	CloudProvider  string `json:"cloudProvider" yaml:"cloudProvider"`
	Namespace      string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	ReleaseName    string `json:"releaseName,omitempty" yaml:"releaseName,omitempty"`
}

func (e *InfrastructureEntity) EntityRef() EntityRef { return Ref(Infrastructure, e.ID) }
func (e *InfrastructureEntity) OwnerAppID() string   { return e.AppID }
func (e *InfrastructureEntity) DisplayName() string  { return e.Name }

// WorkflowEntity is a deployment workflow: phases of steps against one
// service, environment and infrastructure.
type WorkflowEntity struct {
	ID           string     `json:"id" yaml:"id"`
	AppID        string     `json:"appId" yaml:"appId"`
	Name         string     `json:"name" yaml:"name"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	WorkflowType string     `json:"workflowType" yaml:"workflowType"`
	ServiceID    string     `json:"serviceId,omitempty" yaml:"serviceId,omitempty"`
	EnvID        string     `json:"envId,omitempty" yaml:"envId,omitempty"`
	InfraID      string     `json:"infraId,omitempty" yaml:"infraId,omitempty"`
	Variables    []Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
	Phases       []Phase    `json:"phases,omitempty" yaml:"phases,omitempty"`
}

func (e *WorkflowEntity) EntityRef() EntityRef { return Ref(Workflow, e.ID) }
func (e *WorkflowEntity) OwnerAppID() string   { return e.AppID }
func (e *WorkflowEntity) DisplayName() string  { return e.Name }

// Phase is an ordered group of workflow steps.
type Phase struct {
	Name  string `json:"name" yaml:"name"`
	Steps []Step `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Step is one workflow step. TemplateID links a step to a shared template.
type Step struct {
	Name       string                 `json:"name" yaml:"name"`
	Type       string                 `json:"type" yaml:"type"`
	TemplateID string                 `json:"templateId,omitempty" yaml:"templateId,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// PipelineEntity chains workflows and approvals into stages.
type PipelineEntity struct {
	ID          string  `json:"id" yaml:"id"`
	AppID       string  `json:"appId" yaml:"appId"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Stages      []Stage `json:"stages,omitempty" yaml:"stages,omitempty"`
}

func (e *PipelineEntity) EntityRef() EntityRef { return Ref(Pipeline, e.ID) }
func (e *PipelineEntity) OwnerAppID() string   { return e.AppID }
func (e *PipelineEntity) DisplayName() string  { return e.Name }

// Stage types
const (
	StageEnvState = "ENV_STATE"
	StageApproval = "APPROVAL"
)

// Stage is one pipeline stage. ENV_STATE stages run a workflow.
type Stage struct {
	Name              string            `json:"name" yaml:"name"`
	Type              string            `json:"type" yaml:"type"`
	WorkflowID        string            `json:"workflowId,omitempty" yaml:"workflowId,omitempty"`
	WorkflowVariables map[string]string `json:"workflowVariables,omitempty" yaml:"workflowVariables,omitempty"`
	// Outputs are variables the stage publishes for later stages.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Config file owner kinds
const (
	OwnerService     = "SERVICE"
	OwnerEnvironment = "ENVIRONMENT"
)

// ConfigFileEntity is a file attached to a service or overriding one in an
// environment. Encrypted files carry their payload in a secret.
type ConfigFileEntity struct {
	ID               string `json:"id" yaml:"id"`
	AppID            string `json:"appId" yaml:"appId"`
	OwnerType        string `json:"ownerType" yaml:"ownerType"`
	OwnerID          string `json:"ownerId" yaml:"ownerId"`
	RelativeFilePath string `json:"relativeFilePath" yaml:"relativeFilePath"`
	Content          string `json:"content,omitempty" yaml:"content,omitempty"`
	Encrypted        bool   `json:"encrypted,omitempty" yaml:"encrypted,omitempty"`
	EncryptedFileID  string `json:"encryptedFileId,omitempty" yaml:"encryptedFileId,omitempty"`
}

func (e *ConfigFileEntity) EntityRef() EntityRef { return Ref(ConfigFile, e.ID) }
func (e *ConfigFileEntity) OwnerAppID() string   { return e.AppID }
func (e *ConfigFileEntity) DisplayName() string  { return e.RelativeFilePath }

// TemplateEntity is a shared step template (shell script, HTTP call).
type TemplateEntity struct {
	ID           string     `json:"id" yaml:"id"`
	AppID        string     `json:"appId" yaml:"appId"`
	Name         string     `json:"name" yaml:"name"`
	TemplateType string     `json:"templateType" yaml:"templateType"`
	Body         string     `json:"body,omitempty" yaml:"body,omitempty"`
	Variables    []Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
}

func (e *TemplateEntity) EntityRef() EntityRef { return Ref(Template, e.ID) }
func (e *TemplateEntity) OwnerAppID() string   { return e.AppID }
func (e *TemplateEntity) DisplayName() string  { return e.Name }

// SecretEntity is an encrypted secret held by a secret manager.
type SecretEntity struct {
	ID              string `json:"id" yaml:"id"`
	AccountID       string `json:"accountId" yaml:"accountId"`
	Name            string `json:"name" yaml:"name"`
	SecretManagerID string `json:"secretManagerId,omitempty" yaml:"secretManagerId,omitempty"`
	// Path is the secret's location in an external manager; empty for inline secrets.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

func (e *SecretEntity) EntityRef() EntityRef { return Ref(Secret, e.ID) }
func (e *SecretEntity) OwnerAppID() string   { return "" }
func (e *SecretEntity) DisplayName() string  { return e.Name }
