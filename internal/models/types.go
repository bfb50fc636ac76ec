package models

// NodeType identifies the kind of design artifact a node represents.
type NodeType string

const (
	// IP-XACT core
	NodeIPXACTComponent      NodeType = "ipxact_component"
	NodeIPXACTDesign         NodeType = "ipxact_design"
	NodeIPXACTDesignConfig   NodeType = "ipxact_design_config"
	NodeIPXACTAbstractionDef NodeType = "ipxact_abstraction_def"
	NodeIPXACTCatalog        NodeType = "ipxact_catalog"
	NodeIPXACTGeneratorChain NodeType = "ipxact_generator_chain"

	// Constraint files
	NodeSDCConstraint NodeType = "sdc_constraint"
	NodeUPFPower      NodeType = "upf_power"
	NodeCDCConstraint NodeType = "cdc_constraint"
	NodeResetScheme   NodeType = "reset_scheme"

	// RTL & source
	NodeRTLSource   NodeType = "rtl_source"
	NodeFPGASource  NodeType = "fpga_source"
	NodeRTLWrapper  NodeType = "rtl_wrapper"
	NodeRTLFilelist NodeType = "rtl_filelist"

	// Register / memory
	NodeRegisterMap   NodeType = "register_map"
	NodeUVMRALModel   NodeType = "uvm_ral_model"
	NodeCHeader       NodeType = "c_header"
	NodeRegisterDoc   NodeType = "register_doc"
	NodeMemoryMap     NodeType = "memory_map"
	NodeLinkerScript  NodeType = "linker_script"
	NodeAddressDecode NodeType = "address_decode"

	// Verification
	NodeBusVIPConfig    NodeType = "bus_vip_config"
	NodeProtocolChecker NodeType = "protocol_checker"
	NodeTestbenchTop    NodeType = "testbench_top"

	// Physical design
	NodePinMapping          NodeType = "pin_mapping"
	NodeFloorplanConstraint NodeType = "floorplan_constraint"
	NodeIOPadConfig         NodeType = "io_pad_config"
	NodeDEFLEFConstraint    NodeType = "def_lef_constraint"

	// EDA scripts, configuration and documentation
	NodeEDAScript       NodeType = "eda_script"
	NodeVendorExtension NodeType = "vendor_extension"
	NodeConfigParam     NodeType = "config_param"
	NodeDocumentation   NodeType = "documentation"
)

// NodeCategory groups node types by the part of the flow that owns them.
type NodeCategory string

const (
	CategoryIPXACTCore   NodeCategory = "ipxact_core"
	CategoryConstraints  NodeCategory = "constraints"
	CategoryRTLSource    NodeCategory = "rtl_source"
	CategoryRegisterMem  NodeCategory = "register_memory"
	CategoryVerification NodeCategory = "verification"
	CategoryPhysical     NodeCategory = "physical_design"
	CategoryEDAConfig    NodeCategory = "eda_config_docs"
)

var nodeCategories = map[NodeType]NodeCategory{
	NodeIPXACTComponent:      CategoryIPXACTCore,
	NodeIPXACTDesign:         CategoryIPXACTCore,
	NodeIPXACTDesignConfig:   CategoryIPXACTCore,
	NodeIPXACTAbstractionDef: CategoryIPXACTCore,
	NodeIPXACTCatalog:        CategoryIPXACTCore,
	NodeIPXACTGeneratorChain: CategoryIPXACTCore,
	NodeSDCConstraint:        CategoryConstraints,
	NodeUPFPower:             CategoryConstraints,
	NodeCDCConstraint:        CategoryConstraints,
	NodeResetScheme:          CategoryConstraints,
	NodeRTLSource:            CategoryRTLSource,
	NodeFPGASource:           CategoryRTLSource,
	NodeRTLWrapper:           CategoryRTLSource,
	NodeRTLFilelist:          CategoryRTLSource,
	NodeRegisterMap:          CategoryRegisterMem,
	NodeUVMRALModel:          CategoryRegisterMem,
	NodeCHeader:              CategoryRegisterMem,
	NodeRegisterDoc:          CategoryRegisterMem,
	NodeMemoryMap:            CategoryRegisterMem,
	NodeLinkerScript:         CategoryRegisterMem,
	NodeAddressDecode:        CategoryRegisterMem,
	NodeBusVIPConfig:         CategoryVerification,
	NodeProtocolChecker:      CategoryVerification,
	NodeTestbenchTop:         CategoryVerification,
	NodePinMapping:           CategoryPhysical,
	NodeFloorplanConstraint:  CategoryPhysical,
	NodeIOPadConfig:          CategoryPhysical,
	NodeDEFLEFConstraint:     CategoryPhysical,
	NodeEDAScript:            CategoryEDAConfig,
	NodeVendorExtension:      CategoryEDAConfig,
	NodeConfigParam:          CategoryEDAConfig,
	NodeDocumentation:        CategoryEDAConfig,
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	_, ok := nodeCategories[t]
	return ok
}

// Category returns the flow category of t, or "" for unknown types.
func (t NodeType) Category() NodeCategory {
	return nodeCategories[t]
}

// EdgeType is the relationship carried by a dependency edge.
type EdgeType string

const (
	EdgeGenerates    EdgeType = "generates"
	EdgeConstrains   EdgeType = "constrains"
	EdgeReferences   EdgeType = "references"
	EdgeMapsTo       EdgeType = "maps_to"
	EdgeDerivesFrom  EdgeType = "derives_from"
	EdgeConfigures   EdgeType = "configures"
	EdgeInstantiates EdgeType = "instantiates"
	EdgeAbstracts    EdgeType = "abstracts"
	EdgeValidates    EdgeType = "validates"
)

// Valid reports whether t is a known edge type.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeGenerates, EdgeConstrains, EdgeReferences, EdgeMapsTo, EdgeDerivesFrom,
		EdgeConfigures, EdgeInstantiates, EdgeAbstracts, EdgeValidates:
		return true
	}
	return false
}

// Domain is the organisational owner of an artifact or relationship.
type Domain string

const (
	DomainFrontend        Domain = "frontend_design"
	DomainVerification    Domain = "verification"
	DomainDFT             Domain = "dft"
	DomainPhysicalDesign  Domain = "physical_design"
	DomainSignoff         Domain = "signoff"
	DomainFPGATranslation Domain = "fpga_translation"
	DomainFirmware        Domain = "firmware"
	DomainGlobal          Domain = "global"
)

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	switch d {
	case DomainFrontend, DomainVerification, DomainDFT, DomainPhysicalDesign,
		DomainSignoff, DomainFPGATranslation, DomainFirmware, DomainGlobal:
		return true
	}
	return false
}

// ElementKind keys the defined_elements inventory of a node.
type ElementKind string

const (
	ElementClocks        ElementKind = "clocks"
	ElementResets        ElementKind = "resets"
	ElementPorts         ElementKind = "ports"
	ElementBusInterfaces ElementKind = "bus_interfaces"
	ElementMemoryMaps    ElementKind = "memory_maps"
	ElementPowerDomains  ElementKind = "power_domains"
	ElementTopLevelPorts ElementKind = "top_level_ports"
	ElementRegisters     ElementKind = "registers"
)

// Valid reports whether k is a known element kind.
func (k ElementKind) Valid() bool {
	switch k {
	case ElementClocks, ElementResets, ElementPorts, ElementBusInterfaces,
		ElementMemoryMaps, ElementPowerDomains, ElementTopLevelPorts, ElementRegisters:
		return true
	}
	return false
}

// MappingCategory names the kind of field-level mapping a detail record describes.
type MappingCategory string

const (
	MappingPortNaming      MappingCategory = "port_naming"
	MappingClockDomain     MappingCategory = "clock_domain"
	MappingClockConstraint MappingCategory = "clock_constraint"
	MappingResetDomain     MappingCategory = "reset_domain"
	MappingResetConstraint MappingCategory = "reset_constraint"
	MappingIOTiming        MappingCategory = "io_timing"
	MappingFalsePath       MappingCategory = "false_path"
	MappingMulticyclePath  MappingCategory = "multicycle_path"
	MappingClockGroup      MappingCategory = "clock_group"
	MappingPowerDomain     MappingCategory = "power_domain"
	MappingIsolation       MappingCategory = "isolation_strategy"
	MappingRetention       MappingCategory = "retention_strategy"
	MappingLevelShifter    MappingCategory = "level_shifter"
	MappingBusInterface    MappingCategory = "bus_interface"
	MappingMemoryMap       MappingCategory = "memory_map_mapping"
	MappingRegisterBlock   MappingCategory = "register_block"
	MappingAddressSpace    MappingCategory = "address_space"
	MappingCDCCrossing     MappingCategory = "cdc_crossing"
	MappingPinAssignment   MappingCategory = "pin_assignment"
	MappingHierarchy       MappingCategory = "hierarchy_mapping"
	MappingFilelistEntry   MappingCategory = "filelist_entry"
)

// Valid reports whether c is a known mapping category.
func (c MappingCategory) Valid() bool {
	switch c {
	case MappingPortNaming, MappingClockDomain, MappingClockConstraint, MappingResetDomain,
		MappingResetConstraint, MappingIOTiming, MappingFalsePath, MappingMulticyclePath,
		MappingClockGroup, MappingPowerDomain, MappingIsolation, MappingRetention,
		MappingLevelShifter, MappingBusInterface, MappingMemoryMap, MappingRegisterBlock,
		MappingAddressSpace, MappingCDCCrossing, MappingPinAssignment, MappingHierarchy,
		MappingFilelistEntry:
		return true
	}
	return false
}
