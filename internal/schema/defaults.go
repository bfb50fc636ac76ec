package schema

import (
	m "github.com/nvandessel/ipxgraph/internal/models"
)

// multiClock holds when a node declares more than one clock.
var multiClock = &Condition{ElementKey: m.ElementClocks, MinCount: 2}

// multiPower holds when a node declares more than one power domain.
var multiPower = &Condition{ElementKey: m.ElementPowerDomains, MinCount: 2}

func spec(category m.MappingCategory, description string, fields ...string) CategorySpec {
	return CategorySpec{Category: category, RequiredFields: fields, Description: description}
}

func conditional(s CategorySpec, c *Condition) CategorySpec {
	s.Conditional = true
	s.Condition = c
	return s
}

func outputs(types ...m.NodeType) []ExpectedOutput {
	out := make([]ExpectedOutput, len(types))
	for i, t := range types {
		out[i] = ExpectedOutput{TargetType: t}
	}
	return out
}

// Default returns the built-in rule set for an IP-XACT driven flow.
func Default() *Registry {
	b := NewBuilder()

	b.Mapping(m.NodeIPXACTComponent, m.NodeSDCConstraint,
		spec(m.MappingClockDomain, "Each IP-XACT clock port must map to a create_clock command",
			"ipxact_clock_port", "sdc_clock_name", "period_ns", "uncertainty_setup", "uncertainty_hold"),
		spec(m.MappingIOTiming, "Each I/O port must have input/output delay constraints",
			"ipxact_port", "sdc_command", "clock_domain", "max_delay", "min_delay"),
		spec(m.MappingFalsePath, "Async signals (resets, async inputs) must have false paths",
			"ipxact_port_or_domain", "sdc_false_path_spec"),
		conditional(spec(m.MappingClockGroup, "Multiple clocks must define clock groups (async/exclusive)",
			"group_name", "clock_list", "relationship"), multiClock),
		conditional(spec(m.MappingMulticyclePath, "Multicycle paths between slow/fast domains",
			"from_signal", "to_signal", "multiplier", "clock_domain"), multiClock),
	)

	b.Mapping(m.NodeIPXACTComponent, m.NodeUPFPower,
		spec(m.MappingPowerDomain, "Each component must map to a power domain",
			"ipxact_component", "upf_power_domain", "supply_net_vdd", "supply_net_vss"),
		conditional(spec(m.MappingIsolation, "Isolation cells for domain boundaries",
			"power_domain", "isolation_signal", "isolation_sense", "isolation_location"), multiPower),
		conditional(spec(m.MappingRetention, "Retention strategy for power-gated domains",
			"power_domain", "retention_signal", "retention_registers"), nil),
		conditional(spec(m.MappingLevelShifter, "Level shifters between voltage domains",
			"from_domain", "to_domain", "shifter_type"), multiPower),
	)

	b.Mapping(m.NodeIPXACTComponent, m.NodeRTLWrapper,
		spec(m.MappingPortNaming, "Every IP-XACT port must map to an RTL port",
			"ipxact_port", "rtl_port", "direction", "width"),
	)

	b.Mapping(m.NodeIPXACTComponent, m.NodeCDCConstraint,
		spec(m.MappingCDCCrossing, "Each clock domain crossing must be documented",
			"from_clock_domain", "to_clock_domain", "crossing_type", "sync_scheme"),
	)

	b.Mapping(m.NodeIPXACTComponent, m.NodeResetScheme,
		spec(m.MappingResetDomain, "Each reset port maps to a reset domain",
			"ipxact_reset_port", "reset_domain", "polarity", "sync_async"),
		spec(m.MappingResetConstraint, "Reset deassertion timing relative to clock",
			"reset_domain", "associated_clock", "deassert_timing"),
	)

	b.Mapping(m.NodeIPXACTComponent, m.NodeRegisterMap,
		spec(m.MappingRegisterBlock, "Each register in IP-XACT memory map must be mapped",
			"register_name", "offset", "width", "access_type", "reset_value"),
		spec(m.MappingAddressSpace, "Address space mapping for each bus interface",
			"address_space_name", "base_address", "range", "bus_interface"),
	)

	b.Mapping(m.NodeRegisterMap, m.NodeUVMRALModel,
		spec(m.MappingRegisterBlock, "Each register must produce a RAL register class",
			"register_name", "ral_class_name", "access_type", "field_list"),
	)

	b.Mapping(m.NodeRegisterMap, m.NodeCHeader,
		spec(m.MappingRegisterBlock, "Each register must produce C #defines",
			"register_name", "c_define_name", "offset_hex", "field_masks"),
	)

	b.Mapping(m.NodeIPXACTComponent, m.NodePinMapping,
		spec(m.MappingPinAssignment, "Each top-level port must map to a physical pin",
			"ipxact_port", "physical_pin", "pad_type", "io_standard"),
	)

	b.Mapping(m.NodeIPXACTDesign, m.NodeFloorplanConstraint,
		spec(m.MappingHierarchy, "Each instance must have placement constraints",
			"instance_name", "component_ref", "placement_region", "area_estimate"),
	)

	b.Mapping(m.NodeIPXACTComponent, m.NodeRTLFilelist,
		spec(m.MappingFilelistEntry, "All source files listed with correct compile order",
			"file_path", "file_type", "compile_order"),
	)

	b.Mapping(m.NodeIPXACTComponent, m.NodeBusVIPConfig,
		spec(m.MappingBusInterface, "Each bus interface must have VIP configuration",
			"bus_interface_name", "protocol", "vip_type", "config_params"),
	)

	b.Mapping(m.NodeFPGASource, m.NodeIPXACTComponent,
		spec(m.MappingPortNaming, "Each customer FPGA port maps to standardised IP-XACT port",
			"customer_port", "ipxact_port", "direction", "width", "rename_reason"),
		spec(m.MappingClockDomain, "Customer clock signals map to IP-XACT clock domains",
			"customer_clock", "ipxact_clock_domain", "frequency_mhz"),
		spec(m.MappingResetDomain, "Customer reset signals map to IP-XACT reset domains",
			"customer_reset", "ipxact_reset_domain", "polarity"),
	)

	b.Mapping(m.NodeSDCConstraint, m.NodeSDCConstraint,
		spec(m.MappingClockDomain, "DFT/signoff SDC must reference same clocks as main SDC",
			"source_clock", "target_clock_reference", "false_path_defined"),
	)

	b.Mapping(m.NodeIPXACTComponent, m.NodeMemoryMap,
		spec(m.MappingMemoryMap, "Each IP-XACT memory map must produce decode logic",
			"memory_map_name", "address_block", "base_address", "range"),
	)

	b.Mapping(m.NodeMemoryMap, m.NodeAddressDecode,
		spec(m.MappingAddressSpace, "Each address block needs decode logic",
			"address_block", "decode_select_signal", "base_address", "range"),
	)

	b.Mapping(m.NodeMemoryMap, m.NodeLinkerScript,
		spec(m.MappingAddressSpace, "Each memory region maps to linker MEMORY section",
			"memory_region", "origin_address", "length", "access_permissions"),
	)

	b.Mapping(m.NodeIPXACTAbstractionDef, m.NodeBusVIPConfig,
		spec(m.MappingBusInterface, "Abstraction definition drives VIP parameterisation",
			"abstraction_name", "protocol_version", "port_map_list", "vip_parameter_overrides"),
	)

	b.Mapping(m.NodeIPXACTAbstractionDef, m.NodeProtocolChecker,
		spec(m.MappingBusInterface, "Abstraction drives protocol checker configuration",
			"abstraction_name", "checker_rules", "port_connections"),
	)

	b.Outputs(m.ElementClocks,
		ExpectedOutput{TargetType: m.NodeSDCConstraint},
		ExpectedOutput{TargetType: m.NodeCDCConstraint, Conditional: true, Condition: multiClock},
	)
	b.Outputs(m.ElementResets, outputs(m.NodeResetScheme, m.NodeSDCConstraint)...)
	b.Outputs(m.ElementBusInterfaces, outputs(m.NodeBusVIPConfig, m.NodeRTLWrapper)...)
	b.Outputs(m.ElementMemoryMaps, outputs(
		m.NodeRegisterMap, m.NodeUVMRALModel, m.NodeCHeader, m.NodeRegisterDoc, m.NodeAddressDecode)...)
	b.Outputs(m.ElementPorts, outputs(m.NodeRTLWrapper, m.NodeRTLFilelist, m.NodeDocumentation)...)
	b.Outputs(m.ElementPowerDomains, outputs(m.NodeUPFPower)...)
	b.Outputs(m.ElementTopLevelPorts, outputs(m.NodePinMapping)...)
	b.Outputs(m.ElementRegisters, outputs(m.NodeUVMRALModel, m.NodeCHeader)...)

	b.Coverage(
		CoverageCheck{m.ElementPorts, m.MappingPortNaming, "ipxact_port", []m.NodeType{m.NodeRTLWrapper}},
		CoverageCheck{m.ElementClocks, m.MappingClockDomain, "ipxact_clock_port", []m.NodeType{m.NodeSDCConstraint}},
		CoverageCheck{m.ElementResets, m.MappingResetDomain, "ipxact_reset_port", []m.NodeType{m.NodeResetScheme}},
		CoverageCheck{m.ElementBusInterfaces, m.MappingBusInterface, "bus_interface_name", []m.NodeType{m.NodeBusVIPConfig}},
		CoverageCheck{m.ElementMemoryMaps, m.MappingMemoryMap, "memory_map_name", []m.NodeType{m.NodeMemoryMap, m.NodeRegisterMap}},
		CoverageCheck{m.ElementPowerDomains, m.MappingPowerDomain, "upf_power_domain", []m.NodeType{m.NodeUPFPower}},
		CoverageCheck{m.ElementTopLevelPorts, m.MappingPinAssignment, "ipxact_port", []m.NodeType{m.NodePinMapping}},
		CoverageCheck{m.ElementRegisters, m.MappingRegisterBlock, "register_name", []m.NodeType{m.NodeUVMRALModel}},
		CoverageCheck{m.ElementRegisters, m.MappingRegisterBlock, "register_name", []m.NodeType{m.NodeCHeader}},
	)

	reg, err := b.Build()
	if err != nil {
		panic("schema: built-in registry is invalid: " + err.Error())
	}
	return reg
}
